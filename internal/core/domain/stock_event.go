package domain

import "time"

// StockEventKind names the mutation that produced a stock event.
type StockEventKind string

const (
	StockEventPurchase StockEventKind = "purchase"
	StockEventRestock  StockEventKind = "restock"
)

// StockEvent is an audit record of a single quantity change on an item.
type StockEvent struct {
	ItemID     string
	Kind       StockEventKind
	Delta      int
	Quantity   int // quantity after the change
	Actor      string
	OccurredAt time.Time
}
