package models

// OrderChannel menentukan tier tarif yang berlaku untuk satu order.
// Channel ditetapkan saat order dibuat dan tidak pernah berubah per-line.
type OrderChannel string

const (
	ChannelDineIn   OrderChannel = "dine_in"
	ChannelTakeaway OrderChannel = "takeaway"
	ChannelDelivery OrderChannel = "delivery"
)

func (c OrderChannel) Valid() bool {
	switch c {
	case ChannelDineIn, ChannelTakeaway, ChannelDelivery:
		return true
	}
	return false
}

// IsParcel -> true untuk channel yang memakai parcel rate.
func (c OrderChannel) IsParcel() bool {
	return c == ChannelTakeaway || c == ChannelDelivery
}
