package webhook

import (
	"time"

	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Chamada-Signature"
	TimestampHeader = "X-Chamada-Timestamp"
	EventHeader     = "X-Chamada-Event"
	DeliveryHeader  = "X-Chamada-Delivery"
)

// Event is the JSON body of one delivery.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}
