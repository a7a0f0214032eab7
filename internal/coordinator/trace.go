package coordinator

import (
	"context"
	"time"

	"agentrag/internal/message"
)

// State is the position of a trace in its workflow.
// Uploads go STARTED -> PARSED -> INDEXED|FAILED; queries go STARTED -> RETRIEVED -> ANSWERED.
type State string

const (
	StateStarted   State = "STARTED"
	StateParsed    State = "PARSED"
	StateRetrieved State = "RETRIEVED"
	StateIndexed   State = "INDEXED"
	StateAnswered  State = "ANSWERED"
	StateFailed    State = "FAILED"
)

type kind string

const (
	kindUpload kind = "upload"
	kindQuery  kind = "query"
)

// trace is the per-action record. state, err, abandoned and sends on result are
// guarded by Coordinator.mu.
type trace struct {
	id     string
	kind   kind
	state  State
	ctx    context.Context
	cancel context.CancelFunc

	// err is the typed cause behind a failed INDEXING_COMPLETE; the message only carries its text.
	err       error
	abandoned bool
	result    chan outcome
}

func newTrace(parent context.Context, k kind, timeout time.Duration) *trace {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &trace{
		id:     message.NewTraceID(),
		kind:   k,
		state:  StateStarted,
		ctx:    ctx,
		cancel: cancel,
		result: make(chan outcome, 1),
	}
}

// terminalState maps a trace's terminal message to its final state.
func terminalState(m message.Message) State {
	switch p := m.Payload.(type) {
	case message.IndexingComplete:
		if p.Error != "" {
			return StateFailed
		}
		return StateIndexed
	case message.FinalAnswer:
		return StateAnswered
	}
	return StateFailed
}
