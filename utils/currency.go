package utils

import (
	"fmt"
	"strings"

	"github.com/yeremiapane/pos-terminal/models"
)

// FormatAmount memformat Money (minor unit) menjadi string desimal 2 digit,
// mis. 25200 -> "252.00". Dipakai di boundary tampilan/log; perhitungan tetap
// dalam integer.
func FormatAmount(amount models.Money) string {
	return amount.Decimal()
}

// FormatAmountDisplay memformat Money dengan pemisah ribuan untuk tampilan
// struk, mis. 1523450 -> "15.234,50".
func FormatAmountDisplay(amount models.Money) string {
	dec := amount.Decimal()
	neg := strings.HasPrefix(dec, "-")
	dec = strings.TrimPrefix(dec, "-")

	parts := strings.Split(dec, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	// Tambahkan pemisah ribuan
	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	out := strings.Join(groups, ".") + "," + decimalPart
	if neg {
		out = "-" + out
	}
	return out
}

// FormatCurrencyIDR -> tampilan Rupiah, mis. "Rp 15.000,50".
func FormatCurrencyIDR(amount models.Money) string {
	return fmt.Sprintf("Rp %s", FormatAmountDisplay(amount))
}
