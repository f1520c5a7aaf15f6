package amqp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"finboard/internal/core"
)

// RefreshMessage asks the snapshot worker to refetch one query.
type RefreshMessage struct {
	Endpoint    string              `json:"endpoint"`
	Params      map[string][]string `json:"params,omitempty"`
	RequestedAt time.Time           `json:"requested_at"`
}

func NewRefreshMessage(q core.Query) *RefreshMessage {
	return &RefreshMessage{
		Endpoint:    string(q.Endpoint),
		Params:      q.Params,
		RequestedAt: time.Now(),
	}
}

// Query rebuilds the query carried by the message.
func (m *RefreshMessage) Query() (core.Query, error) {
	e := core.Endpoint(m.Endpoint)
	if !e.Known() {
		return core.Query{}, fmt.Errorf("unknown endpoint %q", m.Endpoint)
	}
	q := core.Query{Endpoint: e}
	if len(m.Params) > 0 {
		q.Params = url.Values(m.Params)
	}
	return q, nil
}

func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Endpoint == "" {
		return nil, fmt.Errorf("refresh message without endpoint")
	}
	return &msg, nil
}
