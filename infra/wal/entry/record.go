package entry

import "fmt"

// RecordType names the instruction a journal record carries.
type RecordType uint8

const (
	RecordInitAuction RecordType = iota + 1
	RecordInitOpenOrders
	RecordNewOrder
	RecordCancelOrder
	RecordNewEncryptedOrder
	RecordCancelEncryptedOrder
	RecordDecryptOrders
	RecordCalculateClearingPrice
	RecordMatchOrders
	RecordConsumeEvents
	RecordSettleAndCloseOpenOrders
	RecordCloseAuctionResources
)

var recordNames = [...]string{
	RecordInitAuction:              "InitAuction",
	RecordInitOpenOrders:           "InitOpenOrders",
	RecordNewOrder:                 "NewOrder",
	RecordCancelOrder:              "CancelOrder",
	RecordNewEncryptedOrder:        "NewEncryptedOrder",
	RecordCancelEncryptedOrder:     "CancelEncryptedOrder",
	RecordDecryptOrders:            "DecryptOrders",
	RecordCalculateClearingPrice:   "CalculateClearingPrice",
	RecordMatchOrders:              "MatchOrders",
	RecordConsumeEvents:            "ConsumeEvents",
	RecordSettleAndCloseOpenOrders: "SettleAndCloseOpenOrders",
	RecordCloseAuctionResources:    "CloseAuctionResources",
}

func (t RecordType) String() string {
	if int(t) < len(recordNames) && recordNames[t] != "" {
		return recordNames[t]
	}
	return fmt.Sprintf("RecordType(%d)", uint8(t))
}

// Record is one journal entry. Time is the wall clock the instruction ran
// at, in unix nanoseconds; replay runs it again at that time.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, time int64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time,
		Data: data,
	}
}
