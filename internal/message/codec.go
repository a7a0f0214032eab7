package message

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

type envelope struct {
	ID       string          `json:"id,omitempty"`
	Sender   Role            `json:"sender"`
	Receiver Role            `json:"receiver"`
	Type     Type            `json:"type"`
	TraceID  string          `json:"trace_id"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode renders m as {sender, receiver, type, trace_id, payload}.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	payload, err := sonic.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return sonic.Marshal(envelope{
		ID:       m.ID,
		Sender:   m.Sender,
		Receiver: m.Receiver,
		Type:     m.Type(),
		TraceID:  m.TraceID,
		Payload:  payload,
	})
}

// Decode parses data produced by Encode back into a validated message.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	var payload Payload
	switch env.Type {
	case TypeDocumentParsed:
		var p DocumentParsed
		if err := sonic.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		payload = p
	case TypeRetrievalResult:
		var p RetrievalResult
		if err := sonic.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		payload = p
	case TypeFinalAnswer:
		var p FinalAnswer
		if err := sonic.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		payload = p
	case TypeIndexingComplete:
		var p IndexingComplete
		if err := sonic.Unmarshal(env.Payload, &p); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		payload = p
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, env.Type)
	}
	m := Message{
		ID:       env.ID,
		Sender:   env.Sender,
		Receiver: env.Receiver,
		TraceID:  env.TraceID,
		Payload:  payload,
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
