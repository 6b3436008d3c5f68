package pricing

import "github.com/yeremiapane/pos-terminal/models"

// ResolveRate memilih tier tarif sebuah menu untuk channel order.
// Urutan prioritas:
//  1. dine_in + meja AC -> AcRate
//  2. takeaway / delivery -> ParcelRate
//  3. selain itu -> Rate dasar
//
// Fungsi ini total dan deterministik: tier yang belum diisi (0) jatuh ke Rate
// dasar, dan availability tidak memengaruhi resolusi harga (penolakan item
// unavailable adalah urusan aggregate saat menambah line, bukan urusan
// resolver).
func ResolveRate(menu models.Menu, channel models.OrderChannel, isAc bool) models.Money {
	switch {
	case channel == models.ChannelDineIn && isAc:
		if menu.AcRate > 0 {
			return menu.AcRate
		}
	case channel.IsParcel():
		if menu.ParcelRate > 0 {
			return menu.ParcelRate
		}
	}
	return menu.Rate
}
