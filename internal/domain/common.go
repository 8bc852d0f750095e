package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Direction is the market direction of a signal or position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// IsValid reports whether the direction is one of the two known values.
func (d Direction) IsValid() bool {
	return d == Long || d == Short
}

// EntrySide returns the order side that establishes a position in this direction.
func (d Direction) EntrySide() OrderSide {
	if d == Short {
		return Sell
	}
	return Buy
}

// CloseSide returns the order side that unwinds a position in this direction.
func (d Direction) CloseSide() OrderSide {
	if d == Short {
		return Buy
	}
	return Sell
}

// SignalKind classifies an inbound alert.
type SignalKind string

const (
	KindOpen  SignalKind = "OPEN"
	KindClose SignalKind = "CLOSE"
	KindNone  SignalKind = ""
)

// MarginMode is the collateral policy applied to a position.
type MarginMode string

const (
	MarginCross    MarginMode = "CROSSED"
	MarginIsolated MarginMode = "ISOLATED"
)
