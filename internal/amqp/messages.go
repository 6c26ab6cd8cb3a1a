package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"chainview/internal/core"
)

// ActivityMessage announces one newly observed activity item for a watched account.
type ActivityMessage struct {
	ID          uuid.UUID         `json:"id"`
	Account     string            `json:"account"`
	Item        core.ActivityItem `json:"item"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewActivityMessage stamps item with a fresh message id and the current time.
func NewActivityMessage(account string, item core.ActivityItem) *ActivityMessage {
	return &ActivityMessage{
		ID:          uuid.New(),
		Account:     account,
		Item:        item,
		PublishedAt: time.Now().UTC(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
