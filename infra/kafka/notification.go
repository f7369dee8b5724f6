package kafka

import "strconv"

// Header names carried by every published notification.
const (
	HeaderEventID   = "auction-event-id"
	HeaderEventType = "auction-event-type"
	HeaderSeq       = "auction-outbox-seq"
)

// Notification is one outbox record on its way to the topic. It is keyed
// by auction id, so one auction's notifications share a partition and
// arrive in order.
type Notification struct {
	AuctionID string
	EventID   string
	Type      string
	Seq       uint64
	Payload   []byte
}

func (n Notification) key() []byte {
	return []byte(n.AuctionID)
}

type header struct {
	key   string
	value []byte
}

func (n Notification) headers() []header {
	return []header{
		{HeaderEventID, []byte(n.EventID)},
		{HeaderEventType, []byte(n.Type)},
		{HeaderSeq, strconv.AppendUint(nil, n.Seq, 10)},
	}
}
