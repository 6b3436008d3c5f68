package pricing

import "github.com/yeremiapane/pos-terminal/models"

// RoundingMode untuk pajak dan diskon persentase. Half-up adalah praktik POS
// yang umum; half-even (banker's rounding) bisa dipilih lewat konfigurasi.
type RoundingMode string

const (
	RoundHalfUp   RoundingMode = "half_up"
	RoundHalfEven RoundingMode = "half_even"
)

// MenuLookup mengambil menu dari snapshot katalog. ok=false berarti menu
// sudah tidak ada di katalog; kalkulasi memakai harga beku di line.
type MenuLookup func(menuID uint) (models.Menu, bool)

// Compute menghitung tagihan dari kumpulan line satu order. Seluruh
// aritmetika dalam minor unit (integer), reproducible bit-for-bit untuk input
// identik:
//
//	subtotal = sum(resolveRate(line, channel) * qty)
//	tax      = round(subtotal * taxBps / 10000)
//	discount = round(subtotal * value/10000)  (persentase)
//	           min(value, subtotal)           (flat)
//	total    = max(subtotal + tax - discount, 0)
//
// Line set kosong menghasilkan bill nol tanpa error.
func Compute(lines []models.OrderLine, channel models.OrderChannel, isAc bool,
	lookup MenuLookup, taxBps int64, discount models.Discount, mode RoundingMode) models.Bill {

	var subtotal models.Money
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		rate := line.UnitPrice
		if lookup != nil {
			if menu, ok := lookup(line.MenuID); ok {
				rate = ResolveRate(menu, channel, isAc)
			}
		}
		subtotal += rate * models.Money(line.Quantity)
	}

	tax := models.Money(roundDiv(int64(subtotal)*taxBps, 10000, mode))

	var discountAmount models.Money
	if discount.Value > 0 {
		if discount.Percentage {
			discountAmount = models.Money(roundDiv(int64(subtotal)*discount.Value, 10000, mode))
		} else {
			discountAmount = models.Money(discount.Value)
			if discountAmount > subtotal {
				discountAmount = subtotal
			}
		}
	}

	total := subtotal + tax - discountAmount
	if total < 0 {
		total = 0
	}

	return models.Bill{
		Subtotal:       subtotal,
		TaxBps:         taxBps,
		TaxAmount:      tax,
		DiscountAmount: discountAmount,
		Total:          total,
	}
}

// roundDiv membagi n/den dengan pembulatan sesuai mode. n dan den >= 0.
func roundDiv(n, den int64, mode RoundingMode) int64 {
	if den <= 0 || n <= 0 {
		return 0
	}
	q := n / den
	r := n % den
	switch {
	case 2*r > den:
		return q + 1
	case 2*r < den:
		return q
	}
	// Tepat di tengah.
	if mode == RoundHalfEven && q%2 == 0 {
		return q
	}
	return q + 1
}
