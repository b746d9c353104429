package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockChainService hands every call to the test, which answers it.
type mockChainService struct {
	calls chan *pendingCall
}

type pendingCall struct {
	query entities.Query
	reply chan reply
}

type reply struct {
	result *entities.QueryResult
	err    error
	panic  any
}

func newMockChainService() *mockChainService {
	return &mockChainService{calls: make(chan *pendingCall, 8)}
}

func (m *mockChainService) Ask(ctx context.Context, q entities.Query) (*entities.QueryResult, error) {
	call := &pendingCall{query: q, reply: make(chan reply, 1)}
	m.calls <- call
	select {
	case r := <-call.reply:
		if r.panic != nil {
			panic(r.panic)
		}
		return r.result, r.err
	case <-ctx.Done():
		return nil, entities.NewNetworkError(ctx.Err())
	}
}

func (m *mockChainService) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-m.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no outbound call issued")
		return nil
	}
}

// recordingObserver collects completion events.
type recordingObserver struct {
	mu        sync.Mutex
	submitted []uint64
	completed chan ports.QueryEvent
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{completed: make(chan ports.QueryEvent, 8)}
}

func (o *recordingObserver) Submitted(gen uint64, _ entities.Query) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted = append(o.submitted, gen)
}

func (o *recordingObserver) Completed(e ports.QueryEvent) {
	o.completed <- e
}

func (o *recordingObserver) nextEvent(t *testing.T) ports.QueryEvent {
	t.Helper()
	select {
	case e := <-o.completed:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no completion event")
		return ports.QueryEvent{}
	}
}

func waitIdle(t *testing.T, c *QueryController) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := c.Wait(ctx)
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }

func populated() *entities.QueryResult {
	return &entities.QueryResult{
		Theme:   "Sabbath",
		Summary: "A chain about rest",
		Chain: []entities.ChainEntry{
			{Order: 1, Reference: "A", Text: "first", LinkingPhrase: "leads to", NextReference: strPtr("B"), CrossThemeConnections: []entities.CrossThemeConnection{}},
			{Order: 2, Reference: "B", Text: "second", LinkingPhrase: "ends", CrossThemeConnections: []entities.CrossThemeConnection{
				{Theme: "Grace", Reference: "C", Text: "third"},
			}},
		},
	}
}

func TestQueryController_InitialStateIsIdle(t *testing.T) {
	c := NewQueryController(newMockChainService())
	defer c.Close()

	s := c.Snapshot()
	assert.Nil(t, s.Result)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, ViewIdle, s.View())
}

func TestQueryController_SubmitSetsLoadingSynchronously(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("What is rest?", "Sabbath")

	assert.True(t, c.Loading())
	assert.Nil(t, c.Result())
	assert.Empty(t, c.Error())
	assert.Equal(t, ViewLoading, c.Snapshot().View())

	call := svc.next(t)
	assert.Equal(t, entities.Query{Question: "What is rest?", Theme: "Sabbath"}, call.query)
	call.reply <- reply{result: populated()}
	waitIdle(t, c)
}

func TestQueryController_Success(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q", "Sabbath")
	svc.next(t).reply <- reply{result: populated()}

	s := waitIdle(t, c)
	require.NotNil(t, s.Result)
	assert.Empty(t, s.Error)
	assert.False(t, s.Loading)
	assert.Equal(t, ViewPopulated, s.View())

	chain := s.Result.Chain
	require.Len(t, chain, 2)
	assert.Equal(t, "A", chain[0].Reference)
	assert.Equal(t, "B", chain[1].Reference)
	assert.False(t, chain[0].IsTerminal())
	assert.True(t, chain[1].IsTerminal())
	assert.Empty(t, chain[0].CrossThemeConnections)
	assert.Len(t, chain[1].CrossThemeConnections, 1)
}

func TestQueryController_EmptyChainIsDistinct(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q", "Faith")
	svc.next(t).reply <- reply{result: &entities.QueryResult{Theme: "Faith", Chain: []entities.ChainEntry{}}}

	s := waitIdle(t, c)
	require.NotNil(t, s.Result)
	assert.NotNil(t, s.Result.Chain)
	assert.Empty(t, s.Result.Chain)
	assert.Equal(t, ViewEmpty, s.View())
}

func TestQueryController_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		prefix  string
		outcome ports.Outcome
	}{
		{"network", entities.NewNetworkError(errors.New("connection refused")), "Network error:", ports.OutcomeNetworkError},
		{"server", entities.NewServerError(500, "Internal Server Error"), "Server error: 500", ports.OutcomeServerError},
		{"unexpected", entities.NewUnexpectedError(errors.New("invalid character")), "Unexpected error:", ports.OutcomeUnexpectedError},
		{"unclassified", errors.New("boom"), "Unexpected error:", ports.OutcomeUnexpectedError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMockChainService()
			obs := newRecordingObserver()
			c := NewQueryController(svc, WithObserver(obs))
			defer c.Close()

			c.Submit("q", "t")
			svc.next(t).reply <- reply{err: tt.err}

			s := waitIdle(t, c)
			assert.True(t, strings.HasPrefix(s.Error, tt.prefix), "got %q", s.Error)
			assert.Nil(t, s.Result)
			assert.False(t, s.Loading)
			assert.Equal(t, ViewFailed, s.View())

			e := obs.nextEvent(t)
			assert.Equal(t, tt.outcome, e.Outcome)
			assert.Equal(t, s.Error, e.Message)
			assert.False(t, e.Stale)
		})
	}
}

func TestQueryController_PanicIsRecovered(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q", "t")
	svc.next(t).reply <- reply{panic: "nil map"}

	s := waitIdle(t, c)
	assert.Equal(t, "Unexpected error: nil map", s.Error)
	assert.False(t, s.Loading)
}

func TestQueryController_NilResultWithoutError(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q", "t")
	svc.next(t).reply <- reply{}

	s := waitIdle(t, c)
	assert.Equal(t, "Unexpected error: empty response", s.Error)
}

func TestQueryController_SubmitClearsPreviousOutcome(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q1", "t")
	svc.next(t).reply <- reply{result: populated()}
	require.NotNil(t, waitIdle(t, c).Result)

	c.Submit("q2", "t")
	assert.Nil(t, c.Result())
	assert.True(t, c.Loading())
	svc.next(t).reply <- reply{err: entities.NewServerError(503, "Service Unavailable")}
	require.NotEmpty(t, waitIdle(t, c).Error)

	c.Submit("q3", "t")
	assert.Empty(t, c.Error())
	assert.True(t, c.Loading())
	svc.next(t).reply <- reply{result: populated()}
	s := waitIdle(t, c)
	assert.Empty(t, s.Error)
	assert.NotNil(t, s.Result)
}

func TestQueryController_StaleSuccessIsDiscarded(t *testing.T) {
	svc := newMockChainService()
	obs := newRecordingObserver()
	c := NewQueryController(svc, WithObserver(obs))
	defer c.Close()

	c.Submit("slow", "t")
	first := svc.next(t)
	c.Submit("fast", "t")
	second := svc.next(t)

	second.reply <- reply{result: &entities.QueryResult{Summary: "fast"}}
	s := waitIdle(t, c)
	require.NotNil(t, s.Result)
	assert.Equal(t, "fast", s.Result.Summary)
	assert.False(t, obs.nextEvent(t).Stale)

	first.reply <- reply{result: &entities.QueryResult{Summary: "slow"}}
	e := obs.nextEvent(t)
	assert.True(t, e.Stale)
	assert.Equal(t, uint64(1), e.Generation)

	assert.Equal(t, "fast", c.Result().Summary)
	assert.Empty(t, c.Error())
}

func TestQueryController_StaleFailureWhileLaterInFlight(t *testing.T) {
	svc := newMockChainService()
	obs := newRecordingObserver()
	c := NewQueryController(svc, WithObserver(obs))
	defer c.Close()

	c.Submit("first", "t")
	first := svc.next(t)
	c.Submit("second", "t")
	second := svc.next(t)

	first.reply <- reply{err: entities.NewNetworkError(errors.New("timeout"))}
	assert.True(t, obs.nextEvent(t).Stale)

	s := c.Snapshot()
	assert.True(t, s.Loading, "later submit is still in flight")
	assert.Empty(t, s.Error)
	assert.Nil(t, s.Result)
	assert.Equal(t, uint64(2), s.Generation)

	second.reply <- reply{result: populated()}
	s = waitIdle(t, c)
	assert.NotNil(t, s.Result)
	assert.Empty(t, s.Error)
}

func TestQueryController_ResultIsACopy(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q", "t")
	svc.next(t).reply <- reply{result: populated()}
	waitIdle(t, c)

	r := c.Result()
	r.Chain[0].Reference = "mutated"
	assert.Equal(t, "A", c.Result().Chain[0].Reference)
}

func TestQueryController_SubscribeSeesTransitions(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	initial := <-ch
	assert.Equal(t, ViewIdle, initial.View())

	c.Submit("q", "t")
	loading := <-ch
	assert.Equal(t, ViewLoading, loading.View())

	svc.next(t).reply <- reply{result: populated()}
	select {
	case done := <-ch:
		assert.Equal(t, ViewPopulated, done.View())
	case <-time.After(2 * time.Second):
		t.Fatal("no state after completion")
	}
}

func TestQueryController_UnsubscribeClosesChannel(t *testing.T) {
	c := NewQueryController(newMockChainService())
	defer c.Close()

	ch, unsubscribe := c.Subscribe()
	<-ch
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestQueryController_CloseDiscardsInFlight(t *testing.T) {
	svc := newMockChainService()
	obs := newRecordingObserver()
	c := NewQueryController(svc, WithObserver(obs))

	ch, _ := c.Subscribe()
	<-ch

	c.Submit("q", "t")
	svc.next(t)
	c.Close()

	e := obs.nextEvent(t)
	assert.True(t, e.Stale)
	assert.True(t, c.Loading(), "nothing published after close")

	// drain until the channel is closed
	for range ch {
	}

	c.Submit("ignored", "t")
	assert.Equal(t, uint64(1), c.Snapshot().Generation)

	_, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, ErrControllerClosed)
}

func TestQueryController_WaitHonoursContext(t *testing.T) {
	svc := newMockChainService()
	c := NewQueryController(svc)
	defer c.Close()

	c.Submit("q", "t")
	svc.next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.Loading)
}

func TestQueryController_ObserverSeesGenerations(t *testing.T) {
	svc := newMockChainService()
	obs := newRecordingObserver()
	c := NewQueryController(svc, WithObserver(obs))
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Submit("q", "t")
		svc.next(t).reply <- reply{result: populated()}
		waitIdle(t, c)
		obs.nextEvent(t)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []uint64{1, 2, 3}, obs.submitted)
}

func TestView_String(t *testing.T) {
	assert.Equal(t, "idle", ViewIdle.String())
	assert.Equal(t, "loading", ViewLoading.String())
	assert.Equal(t, "empty", ViewEmpty.String())
	assert.Equal(t, "populated", ViewPopulated.String())
	assert.Equal(t, "failed", ViewFailed.String())
}
