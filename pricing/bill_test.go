package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/pos-terminal/models"
)

func lookupFor(menus ...models.Menu) MenuLookup {
	byID := make(map[uint]models.Menu, len(menus))
	for _, m := range menus {
		byID[m.ID] = m
	}
	return func(id uint) (models.Menu, bool) {
		m, ok := byID[id]
		return m, ok
	}
}

// 2x item (rate 100, AC rate 120) di meja dine-in AC,
// pajak 5%, tanpa diskon -> subtotal 240.00, pajak 12.00, total 252.00.
func TestCompute_DineInAcWithTax(t *testing.T) {
	itemA := models.Menu{ID: 1, Rate: 10000, AcRate: 12000, IsAvailable: true}
	lines := []models.OrderLine{{MenuID: 1, Quantity: 2, UnitPrice: 12000}}

	bill := Compute(lines, models.ChannelDineIn, true, lookupFor(itemA), 500, models.Discount{}, RoundHalfUp)

	assert.Equal(t, models.Money(24000), bill.Subtotal)
	assert.Equal(t, models.Money(1200), bill.TaxAmount)
	assert.Equal(t, models.Money(0), bill.DiscountAmount)
	assert.Equal(t, models.Money(25200), bill.Total)
	assert.Equal(t, "252.00", bill.Total.Decimal())
}

// Diskon flat 300 pada subtotal 240 -> diskon dipotong jadi 240,
// total tidak pernah negatif.
func TestCompute_FlatDiscountCappedAtSubtotal(t *testing.T) {
	itemA := models.Menu{ID: 1, Rate: 10000, AcRate: 12000, IsAvailable: true}
	lines := []models.OrderLine{{MenuID: 1, Quantity: 2, UnitPrice: 12000}}

	bill := Compute(lines, models.ChannelDineIn, true, lookupFor(itemA), 500, models.Discount{Value: 30000}, RoundHalfUp)

	assert.Equal(t, models.Money(24000), bill.Subtotal)
	assert.Equal(t, models.Money(24000), bill.DiscountAmount)
	// total = 240.00 + 12.00 - 240.00 = 12.00
	assert.Equal(t, models.Money(1200), bill.Total)
}

func TestCompute_PercentageDiscount(t *testing.T) {
	item := models.Menu{ID: 1, Rate: 10000, IsAvailable: true}
	lines := []models.OrderLine{{MenuID: 1, Quantity: 3, UnitPrice: 10000}}

	// 10% dari 300.00 = 30.00
	bill := Compute(lines, models.ChannelDineIn, false, lookupFor(item), 0, models.Discount{Percentage: true, Value: 1000}, RoundHalfUp)

	assert.Equal(t, models.Money(30000), bill.Subtotal)
	assert.Equal(t, models.Money(3000), bill.DiscountAmount)
	assert.Equal(t, models.Money(27000), bill.Total)
}

func TestCompute_EmptyLineSet(t *testing.T) {
	bill := Compute(nil, models.ChannelTakeaway, false, nil, 500, models.Discount{Value: 1000}, RoundHalfUp)

	assert.Equal(t, models.Money(0), bill.Subtotal)
	assert.Equal(t, models.Money(0), bill.TaxAmount)
	assert.Equal(t, models.Money(0), bill.DiscountAmount)
	assert.Equal(t, models.Money(0), bill.Total)
}

// Total tidak pernah negatif untuk kombinasi pajak/diskon apa pun.
func TestCompute_TotalNeverNegative(t *testing.T) {
	item := models.Menu{ID: 1, Rate: 100, IsAvailable: true}
	lines := []models.OrderLine{{MenuID: 1, Quantity: 1, UnitPrice: 100}}

	discounts := []models.Discount{
		{},
		{Value: 50},
		{Value: 100},
		{Value: 1000000},
		{Percentage: true, Value: 5000},
		{Percentage: true, Value: 10000},
	}
	for _, taxBps := range []int64{0, 500, 1000, 2750} {
		for _, d := range discounts {
			bill := Compute(lines, models.ChannelDineIn, false, lookupFor(item), taxBps, d, RoundHalfUp)
			assert.GreaterOrEqual(t, int64(bill.Total), int64(0),
				"taxBps=%d discount=%+v", taxBps, d)
		}
	}
}

func TestCompute_MissingMenuUsesFrozenUnitPrice(t *testing.T) {
	// Menu sudah hilang dari katalog: pakai harga beku yang tersimpan di line.
	lines := []models.OrderLine{{MenuID: 99, Quantity: 2, UnitPrice: 1500}}

	bill := Compute(lines, models.ChannelDineIn, false, lookupFor(), 0, models.Discount{}, RoundHalfUp)
	assert.Equal(t, models.Money(3000), bill.Subtotal)
}

func TestCompute_SkipsZeroQuantityLines(t *testing.T) {
	lines := []models.OrderLine{
		{MenuID: 1, Quantity: 0, UnitPrice: 10000},
		{MenuID: 2, Quantity: 1, UnitPrice: 5000},
	}
	bill := Compute(lines, models.ChannelDineIn, false, nil, 0, models.Discount{}, RoundHalfUp)
	assert.Equal(t, models.Money(5000), bill.Subtotal)
}

func TestRoundDiv_Modes(t *testing.T) {
	tests := []struct {
		n, den int64
		mode   RoundingMode
		want   int64
	}{
		{125, 10, RoundHalfUp, 13},   // 12.5 -> 13
		{125, 10, RoundHalfEven, 12}, // 12.5 -> 12 (genap)
		{135, 10, RoundHalfEven, 14}, // 13.5 -> 14 (genap)
		{124, 10, RoundHalfUp, 12},
		{126, 10, RoundHalfEven, 13},
		{0, 10, RoundHalfUp, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundDiv(tt.n, tt.den, tt.mode),
			"roundDiv(%d, %d, %s)", tt.n, tt.den, tt.mode)
	}
}

// Reproducible bit-for-bit: dua kali compute dengan input identik harus
// menghasilkan bill identik.
func TestCompute_Reproducible(t *testing.T) {
	item := models.Menu{ID: 1, Rate: 3333, ParcelRate: 3500, IsAvailable: true}
	lines := []models.OrderLine{{MenuID: 1, Quantity: 7, UnitPrice: 3500}}
	d := models.Discount{Percentage: true, Value: 333}

	first := Compute(lines, models.ChannelDelivery, false, lookupFor(item), 275, d, RoundHalfEven)
	second := Compute(lines, models.ChannelDelivery, false, lookupFor(item), 275, d, RoundHalfEven)
	assert.Equal(t, first, second)
}
