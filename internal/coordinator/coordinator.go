// Package coordinator sequences uploads and queries by routing typed,
// trace-correlated messages between role goroutines.
//
// A single router drains one FIFO queue and forwards each message by type:
// DOCUMENT_PARSED to the indexing role, RETRIEVAL_RESULT to the generation role.
// Terminal messages (INDEXING_COMPLETE, FINAL_ANSWER) resolve the waiting caller.
// Roles never call each other; every hop goes back through the queue.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentrag/internal/domain"
	"agentrag/internal/generation"
	"agentrag/internal/ingestion"
	"agentrag/internal/logger"
	"agentrag/internal/message"
	"agentrag/internal/retrieval"
)

var (
	ErrNotRunning     = errors.New("coordinator is not running")
	ErrTraceAbandoned = errors.New("trace abandoned before completion")
	ErrEmptyQuery     = errors.New("query is empty")
)

const (
	DefaultMaxInFlight  = 16
	DefaultTraceTimeout = 2 * time.Minute
)

type Config struct {
	// MaxInFlight caps concurrently admitted traces. Upload and Query block for a slot.
	MaxInFlight int
	// TraceTimeout bounds each trace end to end. Zero uses the default; negative disables it.
	TraceTimeout time.Duration
}

// Deps are the role implementations the coordinator drives.
type Deps struct {
	Pipeline  *ingestion.Pipeline
	Indexer   *ingestion.Indexer
	Retriever *retrieval.Engine
	Generator *generation.Adapter
}

// UploadResult describes a successfully indexed document.
type UploadResult struct {
	TraceID      string
	DocumentName string
	DocumentType domain.DocumentType
	ChunkIDs     []int
}

type outcome struct {
	msg message.Message
	err error
}

type handler func(tr *trace, m message.Message) (message.Message, error)

type Coordinator struct {
	cfg  Config
	deps Deps

	queue   chan message.Message
	inboxes map[message.Type]chan message.Message
	slots   chan struct{}

	mu         sync.Mutex
	traces     map[string]*trace
	transcript []message.Message
	started    bool
	running    bool
	done       <-chan struct{}
	stop       context.CancelFunc
	wg         sync.WaitGroup
}

func New(cfg Config, deps Deps) *Coordinator {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.TraceTimeout == 0 {
		cfg.TraceTimeout = DefaultTraceTimeout
	}
	// Each admitted trace has at most one message in the system at a time,
	// so these capacities mean sends never block on a full channel.
	n := cfg.MaxInFlight
	return &Coordinator{
		cfg:   cfg,
		deps:  deps,
		queue: make(chan message.Message, n),
		inboxes: map[message.Type]chan message.Message{
			message.TypeDocumentParsed:  make(chan message.Message, n),
			message.TypeRetrievalResult: make(chan message.Message, n),
		},
		slots:  make(chan struct{}, n),
		traces: make(map[string]*trace),
	}
}

// Start launches the router and role goroutines. They stop when ctx ends or Close is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("coordinator already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.started, c.running = true, true
	c.done, c.stop = runCtx.Done(), cancel

	c.wg.Add(3)
	go c.route(runCtx)
	go c.serve(runCtx, message.RoleRetrieval, c.inboxes[message.TypeDocumentParsed], c.handleParsed)
	go c.serve(runCtx, message.RoleGeneration, c.inboxes[message.TypeRetrievalResult], c.handleRetrieval)
	logger.Infow("coordinator started", "max_in_flight", c.cfg.MaxInFlight, "trace_timeout", c.cfg.TraceTimeout)
	return nil
}

// Close stops all goroutines and cancels in-flight traces. It is safe to call more than once.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	for _, tr := range c.traces {
		tr.cancel()
	}
	stop := c.stop
	c.mu.Unlock()

	stop()
	c.wg.Wait()
	logger.Infow("coordinator stopped")
	return nil
}

// Upload parses, chunks, embeds and indexes one document. It succeeds only once
// the document's INDEXING_COMPLETE arrives without error.
func (c *Coordinator) Upload(ctx context.Context, name string, docType domain.DocumentType, data []byte) (*UploadResult, error) {
	tr, err := c.begin(ctx, kindUpload)
	if err != nil {
		return nil, err
	}
	doc, err := c.deps.Pipeline.Parse(tr.ctx, name, docType, data)
	if err != nil {
		c.fail(tr, err)
		return nil, err
	}
	m, err := message.New(message.RoleIngestion, message.RoleRetrieval, tr.id, doc)
	if err != nil {
		c.fail(tr, err)
		return nil, err
	}
	c.advance(tr, StateParsed)
	if err := c.enqueue(m); err != nil {
		c.fail(tr, err)
		return nil, err
	}

	out, err := c.wait(tr)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	done, ok := out.Payload.(message.IndexingComplete)
	if !ok {
		return nil, fmt.Errorf("upload %s: unexpected %s reply", name, out.Type())
	}
	if done.Error != "" {
		c.mu.Lock()
		cause := tr.err
		c.mu.Unlock()
		if cause == nil {
			cause = errors.New(done.Error)
		}
		return nil, fmt.Errorf("upload %s: %w", name, cause)
	}
	return &UploadResult{
		TraceID:      tr.id,
		DocumentName: done.DocumentName,
		DocumentType: done.DocumentType,
		ChunkIDs:     done.ChunkIDs,
	}, nil
}

// Query retrieves context for query and waits for the generated answer.
func (c *Coordinator) Query(ctx context.Context, query string) (*message.FinalAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	tr, err := c.begin(ctx, kindQuery)
	if err != nil {
		return nil, err
	}
	results, err := c.deps.Retriever.Retrieve(tr.ctx, query, 0)
	if err != nil {
		c.fail(tr, err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	m, err := message.New(message.RoleRetrieval, message.RoleGeneration, tr.id, retrieval.Result(query, results))
	if err != nil {
		c.fail(tr, err)
		return nil, err
	}
	c.advance(tr, StateRetrieved)
	if err := c.enqueue(m); err != nil {
		c.fail(tr, err)
		return nil, err
	}

	out, err := c.wait(tr)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	answer, ok := out.Payload.(message.FinalAnswer)
	if !ok {
		return nil, fmt.Errorf("query: unexpected %s reply", out.Type())
	}
	return &answer, nil
}

// Transcript returns every routed message in routing order.
func (c *Coordinator) Transcript() []message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]message.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Active returns the number of admitted, unfinished traces.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.traces)
}

func (c *Coordinator) begin(ctx context.Context, k kind) (*trace, error) {
	c.mu.Lock()
	running, done := c.running, c.done
	c.mu.Unlock()
	if !running {
		return nil, ErrNotRunning
	}

	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return nil, ErrNotRunning
	}

	tr := newTrace(ctx, k, c.cfg.TraceTimeout)
	c.mu.Lock()
	c.traces[tr.id] = tr
	c.mu.Unlock()
	logger.Debugw("trace started", "trace_id", tr.id, "kind", k)
	return tr, nil
}

func (c *Coordinator) advance(tr *trace, next State) {
	c.mu.Lock()
	prev := tr.state
	tr.state = next
	c.mu.Unlock()
	logger.Debugw("trace state", "trace_id", tr.id, "from", prev, "to", next)
}

// fail ends a trace that never reached its terminal message.
func (c *Coordinator) fail(tr *trace, err error) {
	c.mu.Lock()
	_, live := c.traces[tr.id]
	delete(c.traces, tr.id)
	tr.state = StateFailed
	c.mu.Unlock()
	tr.cancel()
	if live {
		<-c.slots
	}
	logger.Warnw("trace failed", "trace_id", tr.id, "kind", tr.kind, "error", err.Error())
}

func (c *Coordinator) enqueue(m message.Message) error {
	select {
	case c.queue <- m:
		return nil
	case <-c.done:
		return ErrNotRunning
	}
}

func (c *Coordinator) wait(tr *trace) (message.Message, error) {
	select {
	case o := <-tr.result:
		return o.msg, o.err
	case <-tr.ctx.Done():
		// resolve delivers under c.mu, so a result is either already buffered
		// here or will be dropped once abandoned is set.
		c.mu.Lock()
		defer c.mu.Unlock()
		select {
		case o := <-tr.result:
			return o.msg, o.err
		default:
		}
		tr.abandoned = true
		return message.Message{}, fmt.Errorf("%w: %w", ErrTraceAbandoned, tr.ctx.Err())
	case <-c.done:
		return message.Message{}, ErrNotRunning
	}
}

func (c *Coordinator) route(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.queue:
			c.dispatch(ctx, m)
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, m message.Message) {
	log := logger.With("trace_id", m.TraceID, "message_id", m.ID, "type", m.Type(),
		"sender", m.Sender, "receiver", m.Receiver)

	c.mu.Lock()
	_, known := c.traces[m.TraceID]
	if known {
		c.transcript = append(c.transcript, m)
	}
	c.mu.Unlock()
	if !known {
		log.Warnw("dropping message for unknown trace")
		return
	}

	if m.Type().Terminal() {
		c.resolve(m, nil)
		return
	}
	inbox, ok := c.inboxes[m.Type()]
	if !ok {
		log.Errorw("no role handles message type")
		c.resolve(m, fmt.Errorf("no role handles %s", m.Type()))
		return
	}
	log.Debugw("routing message")
	select {
	case inbox <- m:
	case <-ctx.Done():
	}
}

// resolve ends a trace, releases its admission slot and hands the outcome to
// the waiting caller unless it has already given up.
func (c *Coordinator) resolve(m message.Message, err error) {
	c.mu.Lock()
	tr, ok := c.traces[m.TraceID]
	if ok {
		delete(c.traces, m.TraceID)
		tr.state = terminalState(m)
		if err != nil {
			tr.state = StateFailed
		}
	}
	c.mu.Unlock()
	if !ok {
		logger.Warnw("dropping terminal message for unknown trace", "trace_id", m.TraceID, "type", m.Type())
		return
	}
	<-c.slots

	c.mu.Lock()
	abandoned, state := tr.abandoned, tr.state
	if !abandoned {
		// result has capacity 1 and only this trace's terminal message fills it.
		tr.result <- outcome{msg: m, err: err}
	}
	c.mu.Unlock()
	tr.cancel()
	if abandoned {
		logger.Warnw("dropping result of abandoned trace", "trace_id", tr.id, "type", m.Type(), "state", state)
		return
	}
	logger.Infow("trace complete", "trace_id", tr.id, "kind", tr.kind, "state", state)
}

func (c *Coordinator) serve(ctx context.Context, role message.Role, inbox <-chan message.Message, handle handler) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-inbox:
			c.mu.Lock()
			tr, ok := c.traces[m.TraceID]
			c.mu.Unlock()
			if !ok {
				logger.Warnw("role dropping message for unknown trace", "role", role, "trace_id", m.TraceID)
				continue
			}
			reply, err := handle(tr, m)
			if err != nil {
				logger.Errorw("role could not reply", "role", role, "trace_id", m.TraceID, "error", err.Error())
				c.resolve(m, err)
				continue
			}
			if err := c.enqueue(reply); err != nil {
				return
			}
		}
	}
}

func (c *Coordinator) handleParsed(tr *trace, m message.Message) (message.Message, error) {
	doc, ok := m.Payload.(message.DocumentParsed)
	if !ok {
		return message.Message{}, fmt.Errorf("unexpected payload %T", m.Payload)
	}
	done, err := c.deps.Indexer.Index(tr.ctx, doc)
	if err != nil {
		c.mu.Lock()
		tr.err = err
		c.mu.Unlock()
	}
	return message.New(message.RoleRetrieval, message.RoleCoordinator, m.TraceID, done)
}

func (c *Coordinator) handleRetrieval(tr *trace, m message.Message) (message.Message, error) {
	res, ok := m.Payload.(message.RetrievalResult)
	if !ok {
		return message.Message{}, fmt.Errorf("unexpected payload %T", m.Payload)
	}
	answer := c.deps.Generator.Handle(tr.ctx, res)
	return message.New(message.RoleGeneration, message.RoleCoordinator, m.TraceID, answer)
}
