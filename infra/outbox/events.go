package outbox

// Notification types.
const (
	TypeClearingPriceFound = "ClearingPriceFound"
	TypeOrderFilled        = "OrderFilled"
	TypeOrderOut           = "OrderOut"
	TypeOpenOrdersClosed   = "OpenOrdersClosed"
)

// ClearingPriceFound is published once, when discovery finishes.
type ClearingPriceFound struct {
	ClearingPrice        string `json:"clearing_price"`
	ClearingPriceFP32    uint64 `json:"clearing_price_fp32"`
	TotalQuantityMatched uint64 `json:"total_quantity_matched"`
}

// OrderFilled is published when a fill is settled into an OpenOrders record.
type OrderFilled struct {
	OpenOrders string `json:"open_orders"`
	Owner      string `json:"owner"`
	Side       string `json:"side"`
	OrderID    string `json:"order_id"`
	BaseSize   uint64 `json:"base_size"`
	QuoteSize  uint64 `json:"quote_size"`
}

// OrderOut is published when an order leaves the book, with any quantity
// returned to its owner.
type OrderOut struct {
	OpenOrders string `json:"open_orders"`
	Owner      string `json:"owner"`
	Side       string `json:"side"`
	OrderID    string `json:"order_id"`
	BaseSize   uint64 `json:"base_size"`
	QuoteSize  uint64 `json:"quote_size"`
}

type OpenOrdersClosed struct {
	OpenOrders    string `json:"open_orders"`
	Owner         string `json:"owner"`
	Side          string `json:"side"`
	BaseReturned  uint64 `json:"base_returned"`
	QuoteReturned uint64 `json:"quote_returned"`
}
