package grpcserver

// Prices travel as decimal strings ("101.25"); quantities are raw token
// units. Order and OpenOrders ids are hex.

type Account struct {
	AuctionID string `json:"auction_id"`
	Owner     string `json:"owner"`
	Side      string `json:"side"`
}

type InitAuctionRequest struct {
	ID                 string `json:"id"`
	Authority          string `json:"authority"`
	BaseAsset          string `json:"base_asset"`
	QuoteAsset         string `json:"quote_asset"`
	EncryptionPubkey   []byte `json:"encryption_pubkey,omitempty"`
	StartOrderPhase    int64  `json:"start_order_phase"`
	EndOrderPhase      int64  `json:"end_order_phase"`
	EndDecryptionPhase int64  `json:"end_decryption_phase"`
	AreAsksEncrypted   bool   `json:"are_asks_encrypted"`
	AreBidsEncrypted   bool   `json:"are_bids_encrypted"`
	MinBaseOrderSize   uint64 `json:"min_base_order_size"`
	TickSize           string `json:"tick_size"`
}

type Auction struct {
	ID                    string `json:"id"`
	Authority             string `json:"authority"`
	BaseAsset             string `json:"base_asset"`
	QuoteAsset            string `json:"quote_asset"`
	StartOrderPhase       int64  `json:"start_order_phase"`
	EndOrderPhase         int64  `json:"end_order_phase"`
	EndDecryptionPhase    int64  `json:"end_decryption_phase"`
	AreAsksEncrypted      bool   `json:"are_asks_encrypted"`
	AreBidsEncrypted      bool   `json:"are_bids_encrypted"`
	MinBaseOrderSize      uint64 `json:"min_base_order_size"`
	TickSize              string `json:"tick_size"`
	HasFoundClearingPrice bool   `json:"has_found_clearing_price"`
	ClearingPrice         string `json:"clearing_price"`
	TotalQuantityMatched  uint64 `json:"total_quantity_matched"`
	Closed                bool   `json:"closed"`
}

type InitOpenOrdersRequest struct {
	Account   Account `json:"account"`
	MaxOrders uint8   `json:"max_orders"`
}

type OpenOrders struct {
	ID               string   `json:"id"`
	Owner            string   `json:"owner"`
	AuctionID        string   `json:"auction_id"`
	Side             string   `json:"side"`
	MaxOrders        uint8    `json:"max_orders"`
	Orders           []string `json:"orders"`
	EncryptedOrders  int      `json:"encrypted_orders"`
	QuoteTokenLocked uint64   `json:"quote_token_locked"`
	QuoteTokenFree   uint64   `json:"quote_token_free"`
	BaseTokenLocked  uint64   `json:"base_token_locked"`
	BaseTokenFree    uint64   `json:"base_token_free"`
}

type NewOrderRequest struct {
	Account    Account `json:"account"`
	LimitPrice string  `json:"limit_price"`
	MaxBaseQty uint64  `json:"max_base_qty"`
}

type NewOrderResponse struct {
	OrderID       string `json:"order_id"`
	TotalBaseQty  uint64 `json:"total_base_qty"`
	TotalQuoteQty uint64 `json:"total_quote_qty"`
}

type CancelOrderRequest struct {
	Account Account `json:"account"`
	OrderID string  `json:"order_id"`
}

type Order struct {
	OrderID      string `json:"order_id"`
	Price        string `json:"price"`
	BaseQuantity uint64 `json:"base_quantity"`
	Owner        string `json:"owner"`
}

type NewEncryptedOrderRequest struct {
	Account    Account `json:"account"`
	TokenQty   uint64  `json:"token_qty"`
	Pubkey     []byte  `json:"pubkey"`
	Nonce      []byte  `json:"nonce"`
	Ciphertext []byte  `json:"ciphertext"`
}

type NewEncryptedOrderResponse struct {
	Index int `json:"index"`
}

type CancelEncryptedOrderRequest struct {
	Account Account `json:"account"`
	Index   int     `json:"index"`
}

type CancelEncryptedOrderResponse struct {
	TokenQty uint64 `json:"token_qty"`
}

type DecryptOrdersRequest struct {
	Account   Account `json:"account"`
	SharedKey []byte  `json:"shared_key"`
}

type DecryptOrdersResponse struct {
	Posted []NewOrderResponse `json:"posted"`
	Freed  uint64             `json:"freed"`
}

type CrankRequest struct {
	AuctionID string `json:"auction_id"`
	Limit     int    `json:"limit"`
}

type ClearingResponse struct {
	Steps int  `json:"steps"`
	Found bool `json:"found"`
}

type MatchResponse struct {
	Side    string `json:"side"`
	Fills   int    `json:"fills"`
	Removed int    `json:"removed"`
}

type ConsumeEventsRequest struct {
	AuctionID  string   `json:"auction_id"`
	Candidates []string `json:"candidates"`
	Limit      int      `json:"limit"`
	AllowNoOp  bool     `json:"allow_no_op"`
}

type ConsumeEventsResponse struct {
	Processed int `json:"processed"`
	Fills     int `json:"fills"`
	Outs      int `json:"outs"`
}

type OrderHistory struct {
	OpenOrdersID        string `json:"open_orders_id"`
	Owner               string `json:"owner"`
	AuctionID           string `json:"auction_id"`
	Side                string `json:"side"`
	QuoteAmountReturned uint64 `json:"quote_amount_returned"`
	BaseAmountReturned  uint64 `json:"base_amount_returned"`
}

type AuctionRef struct {
	AuctionID string `json:"auction_id"`
}

type BookRequest struct {
	AuctionID string `json:"auction_id"`
	Depth     int    `json:"depth"`
}

type PriceLevel struct {
	Price      string `json:"price"`
	TotalQty   uint64 `json:"total_qty"`
	OrderCount int    `json:"order_count"`
}

type Book struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

type PhaseResponse struct {
	Phase string `json:"phase"`
}
