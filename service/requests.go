package service

import (
	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/domain/orderbook"
)

// Requests are journaled as JSON exactly as they were executed, so every
// field an instruction depends on lives here.

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
	TickSize           uint64 `json:"tick_size"`
	// Zero means the service default; the resolved value is journaled.
	BookCapacity  int `json:"book_capacity"`
	EventCapacity int `json:"event_capacity"`
}

func (r InitAuctionRequest) args() auction.InitAuctionArgs {
	return auction.InitAuctionArgs{
		ID:                 r.ID,
		Authority:          r.Authority,
		BaseAsset:          r.BaseAsset,
		QuoteAsset:         r.QuoteAsset,
		EncryptionPubkey:   r.EncryptionPubkey,
		StartOrderPhase:    r.StartOrderPhase,
		EndOrderPhase:      r.EndOrderPhase,
		EndDecryptionPhase: r.EndDecryptionPhase,
		AreAsksEncrypted:   r.AreAsksEncrypted,
		AreBidsEncrypted:   r.AreBidsEncrypted,
		MinBaseOrderSize:   r.MinBaseOrderSize,
		TickSize:           r.TickSize,
	}
}

// Account names one OpenOrders record.
type Account struct {
	AuctionID string         `json:"auction_id"`
	Owner     string         `json:"owner"`
	Side      orderbook.Side `json:"side"`
}

func (a Account) id() orderbook.CallbackInfo {
	return auction.OpenOrdersID(a.AuctionID, a.Owner, a.Side)
}

type InitOpenOrdersRequest struct {
	Account
	MaxOrders uint8 `json:"max_orders"`
}

type NewOrderRequest struct {
	Account
	LimitPrice uint64 `json:"limit_price"`
	MaxBaseQty uint64 `json:"max_base_qty"`
}

type CancelOrderRequest struct {
	Account
	OrderID orderbook.Key `json:"order_id"`
}

type NewEncryptedOrderRequest struct {
	Account
	TokenQty   uint64 `json:"token_qty"`
	Pubkey     []byte `json:"pubkey"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

type CancelEncryptedOrderRequest struct {
	Account
	Index int `json:"index"`
}

type DecryptOrdersRequest struct {
	Account
	SharedKey []byte `json:"shared_key"`
}

type CalculateClearingPriceRequest struct {
	AuctionID string `json:"auction_id"`
	Limit     int    `json:"limit"`
}

type MatchOrdersRequest struct {
	AuctionID string `json:"auction_id"`
	Limit     int    `json:"limit"`
}

type ConsumeEventsRequest struct {
	AuctionID string `json:"auction_id"`
	// Candidates are hex OpenOrders ids.
	Candidates []string `json:"candidates"`
	Limit      int      `json:"limit"`
	AllowNoOp  bool     `json:"allow_no_op"`
}

type SettleAndCloseRequest struct {
	Account
}

type CloseAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}
