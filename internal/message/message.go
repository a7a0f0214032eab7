// Package message defines the typed, trace-correlated messages exchanged
// between the agent roles. Each message type has exactly one payload struct;
// the type of a message is derived from its payload.
package message

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"agentrag/internal/domain"
)

// Type identifies the kind of payload a message carries.
type Type string

const (
	TypeDocumentParsed   Type = "DOCUMENT_PARSED"
	TypeRetrievalResult  Type = "RETRIEVAL_RESULT"
	TypeFinalAnswer      Type = "FINAL_ANSWER"
	TypeIndexingComplete Type = "INDEXING_COMPLETE"
)

// Terminal reports whether receipt of a message of this type ends its trace.
func (t Type) Terminal() bool {
	return t == TypeFinalAnswer || t == TypeIndexingComplete
}

// Role names a message endpoint.
type Role string

const (
	RoleCoordinator Role = "CoordinatorAgent"
	RoleIngestion   Role = "IngestionAgent"
	RoleRetrieval   Role = "RetrievalAgent"
	RoleGeneration  Role = "LLMResponseAgent"
)

// ErrInvalidMessage is returned when a message or payload fails validation.
var ErrInvalidMessage = errors.New("invalid message")

// Payload is implemented by the four payload structs below.
type Payload interface {
	Type() Type
	Validate() error
}

// DocumentParsed carries the chunks of one extracted document.
type DocumentParsed struct {
	DocumentName string              `json:"document_name"`
	DocumentType domain.DocumentType `json:"document_type"`
	Chunks       []string            `json:"chunks"`
}

func (DocumentParsed) Type() Type { return TypeDocumentParsed }

func (p DocumentParsed) Validate() error {
	if p.DocumentName == "" {
		return fmt.Errorf("%w: document_name is required", ErrInvalidMessage)
	}
	if !p.DocumentType.Valid() {
		return fmt.Errorf("%w: unknown document_type %q", ErrInvalidMessage, p.DocumentType)
	}
	return nil
}

// RetrievalResult carries ranked context for a query.
// SourceContextMetadata[i] describes RetrievedContext[i].
type RetrievalResult struct {
	RetrievedContext      []string `json:"retrieved_context"`
	SourceContextMetadata []string `json:"source_context_metadata"`
	Query                 string   `json:"query"`
}

func (RetrievalResult) Type() Type { return TypeRetrievalResult }

func (p RetrievalResult) Validate() error {
	if p.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidMessage)
	}
	if len(p.RetrievedContext) != len(p.SourceContextMetadata) {
		return fmt.Errorf("%w: %d contexts but %d source entries", ErrInvalidMessage,
			len(p.RetrievedContext), len(p.SourceContextMetadata))
	}
	return nil
}

// FinalAnswer is the terminal message of a query trace.
type FinalAnswer struct {
	Answer        string   `json:"answer"`
	SourceContext []string `json:"source_context"`
	OriginalQuery string   `json:"original_query"`
}

func (FinalAnswer) Type() Type { return TypeFinalAnswer }

func (p FinalAnswer) Validate() error {
	if p.Answer == "" {
		return fmt.Errorf("%w: answer is required", ErrInvalidMessage)
	}
	return nil
}

// IndexingComplete is the terminal message of an upload trace.
// A non-empty Error means nothing from the document was indexed.
type IndexingComplete struct {
	DocumentName string              `json:"document_name"`
	DocumentType domain.DocumentType `json:"document_type"`
	ChunkIDs     []int               `json:"chunk_ids"`
	Error        string              `json:"error,omitempty"`
}

func (IndexingComplete) Type() Type { return TypeIndexingComplete }

func (p IndexingComplete) Validate() error {
	if p.DocumentName == "" {
		return fmt.Errorf("%w: document_name is required", ErrInvalidMessage)
	}
	if p.Error != "" && len(p.ChunkIDs) > 0 {
		return fmt.Errorf("%w: failed indexing cannot report chunk ids", ErrInvalidMessage)
	}
	return nil
}

// Message is an envelope routed by the coordinator.
type Message struct {
	ID       string
	Sender   Role
	Receiver Role
	TraceID  string
	Payload  Payload
}

// Type returns the payload's message type.
func (m Message) Type() Type {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Type()
}

// New builds a validated message with a fresh ID.
func New(sender, receiver Role, traceID string, payload Payload) (Message, error) {
	m := Message{
		ID:       NewID(),
		Sender:   sender,
		Receiver: receiver,
		TraceID:  traceID,
		Payload:  payload,
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks the envelope and its payload.
func (m Message) Validate() error {
	if m.TraceID == "" {
		return fmt.Errorf("%w: trace_id is required", ErrInvalidMessage)
	}
	if m.Sender == "" || m.Receiver == "" {
		return fmt.Errorf("%w: sender and receiver are required", ErrInvalidMessage)
	}
	if m.Payload == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidMessage)
	}
	return m.Payload.Validate()
}

// NewTraceID mints the correlation id for one user action.
func NewTraceID() string {
	return uuid.NewString()
}

var (
	idMu      sync.Mutex
	idEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID, monotonic within the process.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
