// Package usecases contains application business rules.
// Clean Architecture: usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just the query lifecycle.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/ports"
)

// ErrControllerClosed is returned by Wait once the controller is closed.
var ErrControllerClosed = errors.New("query controller closed")

// View is what a UI should show, derived from the three signals alone.
type View int

const (
	ViewIdle View = iota // No query yet
	ViewLoading
	ViewEmpty // Succeeded with an empty chain
	ViewPopulated
	ViewFailed
)

func (v View) String() string {
	switch v {
	case ViewIdle:
		return "idle"
	case ViewLoading:
		return "loading"
	case ViewEmpty:
		return "empty"
	case ViewPopulated:
		return "populated"
	case ViewFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a consistent read of the three signals.
type State struct {
	Generation uint64
	Result     *entities.QueryResult // nil when absent
	Loading    bool
	Error      string // empty when absent
}

// View classifies the state for rendering.
func (s State) View() View {
	switch {
	case s.Loading:
		return ViewLoading
	case s.Error != "":
		return ViewFailed
	case s.Result == nil:
		return ViewIdle
	case len(s.Result.Chain) == 0:
		return ViewEmpty
	default:
		return ViewPopulated
	}
}

// ControllerOption configures a QueryController.
type ControllerOption func(*QueryController)

// WithObserver registers an observer for submit and completion events.
func WithObserver(o ports.OutcomeObserver) ControllerOption {
	return func(c *QueryController) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithContext sets the parent context of every outbound call.
func WithContext(ctx context.Context) ControllerOption {
	return func(c *QueryController) {
		if ctx != nil {
			c.parent = ctx
		}
	}
}

// QueryController owns a single query slot and publishes result, loading
// and error. Each Submit takes a new generation; completions from older
// generations are dropped so a slow earlier answer never overwrites a
// later one.
type QueryController struct {
	service  ports.ChainService
	observer ports.OutcomeObserver
	parent   context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu         sync.Mutex
	generation uint64
	result     *entities.QueryResult
	loading    bool
	errMsg     string
	closed     bool
	subs       map[int]chan State
	nextSub    int
}

// NewQueryController creates a controller with an injected ChainService.
func NewQueryController(service ports.ChainService, opts ...ControllerOption) *QueryController {
	c := &QueryController{
		service:  service,
		observer: nopObserver{},
		parent:   context.Background(),
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(c.parent)
	return c
}

// Submit starts a new query. Before returning it sets loading and clears
// any previous result and error; the outbound call runs in the background.
// A call still in flight is not cancelled, its outcome is simply discarded.
func (c *QueryController) Submit(question, theme string) {
	query := entities.Query{Question: question, Theme: theme}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.loading = true
	c.errMsg = ""
	c.result = nil
	c.publishLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.observer.Submitted(gen, query)
	go c.run(gen, query)
}

// Result returns the last successful answer, or nil.
func (c *QueryController) Result() *entities.QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result.Clone()
}

// Loading reports whether the latest submit is still in flight.
func (c *QueryController) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Error returns the message of the latest failure, or "".
func (c *QueryController) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Snapshot reads all three signals at once.
func (c *QueryController) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Subscribe returns a channel carrying the current state followed by every
// change. Slow readers only ever see the newest state. The returned func
// unsubscribes and closes the channel.
func (c *QueryController) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	ch <- c.stateLocked()
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until no query is in flight and returns that state.
func (c *QueryController) Wait(ctx context.Context) (State, error) {
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return c.Snapshot(), ErrControllerClosed
			}
			if !s.Loading {
				return s, nil
			}
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Close aborts in-flight calls, waits for them and closes all subscriptions.
// Outcomes arriving after Close are discarded.
func (c *QueryController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
}

func (c *QueryController) run(gen uint64, query entities.Query) {
	defer c.wg.Done()

	start := time.Now()
	result, err := c.ask(query)
	c.complete(gen, query, result, err, time.Since(start))
}

// ask calls the service and turns a panic into an UnexpectedError so that
// loading is always reset.
func (c *QueryController) ask(query entities.Query) (result *entities.QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = entities.NewUnexpectedError(fmt.Errorf("%v", r))
		}
	}()

	result, err = c.service.Ask(c.ctx, query)
	if err == nil && result == nil {
		err = entities.NewUnexpectedError(errors.New("empty response"))
	}
	return result, err
}

func (c *QueryController) complete(gen uint64, query entities.Query, result *entities.QueryResult, err error, elapsed time.Duration) {
	event := ports.QueryEvent{
		Generation: gen,
		Query:      query,
		Outcome:    ports.OutcomeSucceeded,
		Duration:   elapsed,
	}
	if err != nil {
		event.Outcome = classify(err)
		event.Message = entities.Describe(err)
	}

	c.mu.Lock()
	event.Stale = c.closed || gen != c.generation
	if !event.Stale {
		c.loading = false
		if err != nil {
			c.result = nil
			c.errMsg = event.Message
		} else {
			c.result = result.Clone()
			c.errMsg = ""
		}
		c.publishLocked()
	}
	c.mu.Unlock()

	c.observer.Completed(event)
}

func (c *QueryController) stateLocked() State {
	return State{
		Generation: c.generation,
		Result:     c.result.Clone(),
		Loading:    c.loading,
		Error:      c.errMsg,
	}
}

// publishLocked replaces whatever each subscriber has not read yet.
// Only this method sends, always under mu, so the send never blocks.
func (c *QueryController) publishLocked() {
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.stateLocked()
	}
}

func classify(err error) ports.Outcome {
	var netErr *entities.NetworkError
	var srvErr *entities.ServerError
	switch {
	case errors.As(err, &srvErr):
		return ports.OutcomeServerError
	case errors.As(err, &netErr):
		return ports.OutcomeNetworkError
	default:
		return ports.OutcomeUnexpectedError
	}
}

type nopObserver struct{}

func (nopObserver) Submitted(uint64, entities.Query) {}
func (nopObserver) Completed(ports.QueryEvent)       {}
