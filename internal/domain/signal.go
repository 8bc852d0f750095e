package domain

import "time"

// TradeSignal is the typed form of an inbound free-text alert.
// An OPEN signal always carries a direction; a CLOSE signal carries
// only the symbol and its emission timestamp.
type TradeSignal struct {
	Kind          SignalKind
	Symbol        string
	Direction     Direction // OPEN only
	LastPrice     float64   // OPEN only
	FairPrice     float64   // OPEN only
	SpreadPercent *float64  // OPEN only, nil when the alert carried no spread
	EmittedAt     time.Time
	Marker        string // raw direction marker the direction was resolved from
}
