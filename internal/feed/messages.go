package feed

import (
	"encoding/json"
	"time"
)

// Event types mirrored from the change feed.
const (
	EventInsert = "insert"
	EventUpdate = "update"
	EventDelete = "delete"
)

// Record domains carried on the feed.
const (
	DomainInvoices = "invoices"
	DomainTva      = "tva"
)

// RecordEvent is a lightweight notification that a line record changed.
// It carries only identifying fields, consumers refetch the full state
// from the store rather than trusting the payload.
type RecordEvent struct {
	Domain    string    `json:"domain"`
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	ImageRef  string    `json:"image_ref,omitempty"`
	RecordID  int64     `json:"record_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordEvent creates an event stamped with the current time.
func NewRecordEvent(domain, eventType, userID, imageRef string, recordID int64) *RecordEvent {
	return &RecordEvent{
		Domain:    domain,
		Type:      eventType,
		UserID:    userID,
		ImageRef:  imageRef,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON creates an event from JSON bytes
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
