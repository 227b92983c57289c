package streaming

import (
	"encoding/json"
	"errors"
	"time"

	"walletscope/internal/domain"
)

type MessageType string

const (
	MessageTypeChainRecord MessageType = "chain_record"
)

// Message is the Kafka payload published for every chain of a finished run.
type Message struct {
	Type      MessageType        `json:"type"`
	RunID     string             `json:"run_id"`
	Address   string             `json:"address"`
	Chain     string             `json:"chain"`
	TraceID   string             `json:"trace_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Record    domain.ChainRecord `json:"record"`
}

func Encode(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func validate(msg Message) error {
	if msg.Type == "" {
		return errors.New("message type is missing")
	}
	if msg.RunID == "" {
		return errors.New("run_id is missing")
	}
	if msg.Chain == "" {
		return errors.New("chain is missing")
	}
	return nil
}
