package model

import (
	"time"
)

// StoreEvent is a change notification delivered by the data store
type StoreEvent struct {
	Kind      string
	Key       string
	Timestamp time.Time
}
