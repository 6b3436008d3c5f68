package models

// Bill adalah hasil kalkulasi tagihan satu order. Bill bersifat derived:
// tidak punya tabel sendiri, snapshot-nya disalin ke kolom Order saat
// transisi ke billed.
type Bill struct {
	Subtotal       Money `json:"subtotal"`
	TaxBps         int64 `json:"tax_bps"`
	TaxAmount      Money `json:"tax_amount"`
	DiscountAmount Money `json:"discount_amount"`
	Total          Money `json:"total"`
}

// Discount policy per order. Untuk persentase, Value dalam basis point
// (1000 = 10%); untuk flat, Value dalam minor unit dan dipotong maksimal
// sebesar subtotal supaya total tidak pernah negatif.
type Discount struct {
	Percentage bool  `json:"percentage"`
	Value      int64 `json:"value"`
}
