package message

import "time"

// Record is one delivery from a notification feed.
type Record struct {
	Subject   string
	Data      []byte
	Sequence  uint64
	Published time.Time
	// Ref is the feed's own handle for acknowledging the record. Only the
	// feed that produced the record may interpret it.
	Ref any
}
