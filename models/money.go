package models

import (
	"fmt"
	"strconv"
)

// Money adalah jumlah uang dalam minor unit (sen). Semua perhitungan tagihan
// dilakukan dalam integer supaya tidak ada float drift; konversi ke desimal
// hanya terjadi di boundary (JSON / tampilan).
type Money int64

// Decimal mengembalikan representasi 2 digit desimal, mis. 25200 -> "252.00".
func (m Money) Decimal() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON menulis Money sebagai angka desimal 2 digit.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON menerima angka desimal ("120" atau "120.50") dari payload.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	// Pembulatan half-up ke sen terdekat saat parsing boundary.
	if f >= 0 {
		*m = Money(f*100 + 0.5)
	} else {
		*m = Money(f*100 - 0.5)
	}
	return nil
}
