package auction

import "fmt"

// Kind classifies an Error by how a caller should react to it.
type Kind uint8

const (
	// KindPhase: wrong phase, retry later.
	KindPhase Kind = iota + 1
	// KindValidation: bad arguments, nothing was mutated.
	KindValidation
	// KindConsistency: a required step was skipped or inputs disagree.
	KindConsistency
	// KindResource: a bounded structure is full.
	KindResource
	// KindAtomicity: a batch was aborted as a whole.
	KindAtomicity
	KindArithmetic
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindPhase:
		return "phase"
	case KindValidation:
		return "validation"
	case KindConsistency:
		return "consistency"
	case KindResource:
		return "resource"
	case KindAtomicity:
		return "atomicity"
	case KindArithmetic:
		return "arithmetic"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is an auction rule violation with a stable numeric code.
type Error struct {
	Code uint32
	Kind Kind
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Msg)
}

func newError(code uint32, kind Kind, name, msg string) *Error {
	return &Error{Code: code, Kind: kind, Name: name, Msg: msg}
}

var (
	ErrNotImplemented                  = newError(6000, KindValidation, "NotImplemented", "function not yet implemented")
	ErrInvalidMarketState              = newError(6001, KindConsistency, "InvalidAobMarketState", "invalid order book state")
	ErrInvalidEndTimes                 = newError(6002, KindValidation, "InvalidEndTimes", "order phase should end in the future")
	ErrInvalidStartTimes               = newError(6003, KindValidation, "InvalidStartTimes", "order phase should start before it ends")
	ErrInvalidDecryptionEndTime        = newError(6004, KindValidation, "InvalidDecryptionEndTime", "decryption phase must not end before the order phase")
	ErrInvalidMinBaseOrderSize         = newError(6005, KindValidation, "InvalidMinBaseOrderSize", "min base order size should be greater than zero")
	ErrInvalidTickSize                 = newError(6006, KindValidation, "InvalidTickSize", "tick size should be greater than zero")
	ErrNoAskOrders                     = newError(6007, KindConsistency, "NoAskOrders", "no ask orders")
	ErrNoBidOrders                     = newError(6008, KindConsistency, "NoBidOrders", "no bid orders")
	ErrNoOrdersInOrderbook             = newError(6009, KindConsistency, "NoOrdersInOrderbook", "no orders in the order book")
	ErrNoClearingPriceYet              = newError(6010, KindPhase, "NoClearingPriceYet", "clearing price not found yet")
	ErrEventQueueFull                  = newError(6011, KindResource, "AobEventQueueFull", "event queue is full")
	ErrNoEventsProcessed               = newError(6012, KindConsistency, "NoEventsProcessed", "no events processed")
	ErrMissingOpenOrders               = newError(6013, KindConsistency, "MissingOpenOrdersPubkeyInRemainingAccounts", "event owner not among the supplied open orders")
	ErrUserSideDiffFromEventSide       = newError(6014, KindConsistency, "UserSideDiffFromEventSide", "open orders side differs from the event side")
	ErrOrderIDNotFound                 = newError(6015, KindValidation, "OrderIdNotFound", "order id not found in list of orders")
	ErrOrderIdxNotValid                = newError(6016, KindValidation, "OrderIdxNotValid", "encrypted order index is invalid")
	ErrOrderPhaseIsOver                = newError(6017, KindPhase, "OrderPhaseIsOver", "time for placing orders has finished")
	ErrOrderPhaseHasNotStarted         = newError(6018, KindPhase, "OrderPhaseHasNotStarted", "time for placing orders hasn't started")
	ErrMaxOrdersValueIsInvalid         = newError(6019, KindValidation, "MaxOrdersValueIsInvalid", "max orders must be between 1 and 8")
	ErrEncryptedOrdersOnlyOnThisSide   = newError(6020, KindValidation, "EncryptedOrdersOnlyOnThisSide", "only encrypted orders are accepted on this side")
	ErrUnencryptedOrdersOnlyOnThisSide = newError(6021, KindValidation, "UnencryptedOrdersOnlyOnThisSide", "only plain orders are accepted on this side")
	ErrLimitPriceNotAMultipleOfTick    = newError(6022, KindValidation, "LimitPriceNotAMultipleOfTickSize", "limit price must be a multiple of the tick size")
	ErrOrderBelowMinBaseOrderSize      = newError(6023, KindValidation, "OrderBelowMinBaseOrderSize", "max base quantity is below the minimum")
	ErrTooManyOrders                   = newError(6024, KindResource, "TooManyOrders", "open orders already holds the maximum number of orders")
	ErrEncryptionPubkeysDoNotMatch     = newError(6025, KindValidation, "EncryptionPubkeysDoNotMatch", "public key differs from the one stored on the open orders")
	ErrIdenticalEncryptedOrderFound    = newError(6026, KindValidation, "IdenticalEncryptedOrderFound", "an identical encrypted order is already queued")
	ErrInsufficientTokensForOrder      = newError(6027, KindAtomicity, "InsufficientTokensForOrder", "locked tokens do not cover the decrypted order; cancel encrypted orders after the decryption phase")
	ErrOpenOrdersHasOpenOrders         = newError(6028, KindValidation, "OpenOrdersHasOpenOrders", "open orders still has resting orders")
	ErrOpenOrdersHasLockedTokens       = newError(6029, KindValidation, "OpenOrdersHasLockedTokens", "open orders still has locked tokens")
	ErrOrderBookNotEmpty               = newError(6030, KindPhase, "OrderBookNotEmpty", "order book should be empty")
	ErrEventQueueNotEmpty              = newError(6031, KindPhase, "EventQueueNotEmpty", "event queue should be empty")

	ErrOrderPhaseNotActive             = newError(6032, KindPhase, "OrderPhaseNotActive", "order phase is not active")
	ErrDecryptionPhaseNotActive        = newError(6033, KindPhase, "DecryptionPhaseNotActive", "decryption phase is not active")
	ErrCalcClearingPricePhaseNotActive = newError(6034, KindPhase, "CalcClearingPricePhaseNotActive", "clearing price discovery is not active")
	ErrMatchOrdersPhaseNotActive       = newError(6035, KindPhase, "MatchOrdersPhaseNotActive", "matching is not active")
	ErrAuctionNotFinished              = newError(6036, KindPhase, "AuctionNotFinished", "auction has not finished")
	ErrNodeKeyNotFound                 = newError(6037, KindConsistency, "NodeKeyNotFound", "cursor node not found in the order book")
	ErrSlabIteratorOverflow            = newError(6038, KindConsistency, "SlabIteratorOverflow", "order book iterator stack exceeds its bound")
	ErrInvalidSharedKey                = newError(6039, KindAtomicity, "InvalidSharedKey", "encrypted order failed to decrypt with the shared key")
	ErrNumericalOverflow               = newError(6040, KindArithmetic, "NumericalOverflow", "numerical overflow")
	ErrOrderBookFull                   = newError(6041, KindResource, "OrderBookFull", "order book side is full")
	ErrInvalidEncryptedOrder           = newError(6042, KindValidation, "InvalidEncryptedOrder", "encrypted order is malformed")
	ErrInvalidSide                     = newError(6043, KindValidation, "InvalidSide", "side must be bid or ask")
	ErrInvalidAuctionID                = newError(6044, KindValidation, "InvalidAuctionId", "auction id must be 1 to 32 printable characters")
	ErrInvalidOwner                    = newError(6045, KindValidation, "InvalidOwner", "owner must be 1 to 64 printable characters")
	ErrInvalidEncryptionPubkey         = newError(6046, KindValidation, "InvalidEncryptionPubkey", "encryption public key must be 32 bytes")
	ErrAuctionClosed                   = newError(6047, KindPhase, "AuctionClosed", "auction resources have been closed")
	ErrAuctionAlreadyExists            = newError(6048, KindValidation, "AuctionAlreadyExists", "auction already exists")
	ErrOpenOrdersAlreadyExists         = newError(6049, KindValidation, "OpenOrdersAlreadyExists", "open orders already exists")
	ErrAuctionNotFound                 = newError(6050, KindNotFound, "AuctionNotFound", "auction not found")
	ErrOpenOrdersNotFound              = newError(6051, KindNotFound, "OpenOrdersNotFound", "open orders not found")
	ErrOrderHistoryNotFound            = newError(6052, KindNotFound, "OrderHistoryNotFound", "order history not found")
)

var byCode = map[uint32]*Error{}

func init() {
	for _, e := range []*Error{
		ErrNotImplemented, ErrInvalidMarketState, ErrInvalidEndTimes, ErrInvalidStartTimes,
		ErrInvalidDecryptionEndTime, ErrInvalidMinBaseOrderSize, ErrInvalidTickSize,
		ErrNoAskOrders, ErrNoBidOrders, ErrNoOrdersInOrderbook, ErrNoClearingPriceYet,
		ErrEventQueueFull, ErrNoEventsProcessed, ErrMissingOpenOrders, ErrUserSideDiffFromEventSide,
		ErrOrderIDNotFound, ErrOrderIdxNotValid, ErrOrderPhaseIsOver, ErrOrderPhaseHasNotStarted,
		ErrMaxOrdersValueIsInvalid, ErrEncryptedOrdersOnlyOnThisSide, ErrUnencryptedOrdersOnlyOnThisSide,
		ErrLimitPriceNotAMultipleOfTick, ErrOrderBelowMinBaseOrderSize, ErrTooManyOrders,
		ErrEncryptionPubkeysDoNotMatch, ErrIdenticalEncryptedOrderFound, ErrInsufficientTokensForOrder,
		ErrOpenOrdersHasOpenOrders, ErrOpenOrdersHasLockedTokens, ErrOrderBookNotEmpty,
		ErrEventQueueNotEmpty, ErrOrderPhaseNotActive, ErrDecryptionPhaseNotActive,
		ErrCalcClearingPricePhaseNotActive, ErrMatchOrdersPhaseNotActive, ErrAuctionNotFinished,
		ErrNodeKeyNotFound, ErrSlabIteratorOverflow, ErrInvalidSharedKey, ErrNumericalOverflow,
		ErrOrderBookFull, ErrInvalidEncryptedOrder, ErrInvalidSide, ErrInvalidAuctionID,
		ErrInvalidOwner, ErrInvalidEncryptionPubkey, ErrAuctionClosed, ErrAuctionAlreadyExists,
		ErrOpenOrdersAlreadyExists, ErrAuctionNotFound, ErrOpenOrdersNotFound, ErrOrderHistoryNotFound,
	} {
		byCode[e.Code] = e
	}
}

// ErrorByCode returns the sentinel registered under code.
func ErrorByCode(code uint32) (*Error, bool) {
	e, ok := byCode[code]
	return e, ok
}
