package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioneuro/backend/internal/flow"
	"bioneuro/backend/internal/llm/contract"
)

type fakeResult struct {
	text string
	err  error
}

type fakeScript struct {
	openErr error
	chunks  []string
	err     error
}

type fakeProvider struct {
	config *ProviderConfig

	mu          sync.Mutex
	replies     []fakeResult
	scripts     []fakeScript
	block       bool
	healthErr   error
	chatCalls   int
	streamCalls int
	healthCalls int
	requests    []ChatRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) GetConfig() *ProviderConfig {
	if f.config == nil {
		return &ProviderConfig{ProviderName: "fake"}
	}
	return f.config
}

func (f *fakeProvider) GetUsage(ctx context.Context) (*UsageStats, error) {
	return &UsageStats{}, nil
}

func (f *fakeProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	f.mu.Lock()
	call := f.chatCalls
	f.chatCalls++
	f.requests = append(f.requests, req)
	block := f.block
	var result fakeResult
	if len(f.replies) > 0 {
		result = f.replies[min(call, len(f.replies)-1)]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return result.text, result.err
}

func (f *fakeProvider) StreamChat(ctx context.Context, req ChatRequest) (ChunkStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.streamCalls
	f.streamCalls++
	f.requests = append(f.requests, req)
	var script fakeScript
	if len(f.scripts) > 0 {
		script = f.scripts[min(call, len(f.scripts)-1)]
	}
	if script.openErr != nil {
		return nil, script.openErr
	}
	return &fakeStream{chunks: script.chunks, err: script.err}, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) (*HealthCheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthCalls++
	if f.healthErr != nil {
		return &HealthCheckResult{Status: "error", ErrorMessage: f.healthErr.Error(), Timestamp: time.Now()}, f.healthErr
	}
	return &HealthCheckResult{Status: "ok", Latency: time.Millisecond, Timestamp: time.Now()}, nil
}

func (f *fakeProvider) transportCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls + f.streamCalls + f.healthCalls
}

type fakeStream struct {
	chunks  []string
	err     error
	index   int
	current string
}

func (s *fakeStream) Next() bool {
	if s.index >= len(s.chunks) {
		return false
	}
	s.current = s.chunks[s.index]
	s.index++
	return true
}

func (s *fakeStream) Current() string { return s.current }

func (s *fakeStream) Err() error {
	if s.index >= len(s.chunks) {
		return s.err
	}
	return nil
}

func (s *fakeStream) Close() error { return nil }

type usageSink struct {
	mu      sync.Mutex
	records []UsageRecord
}

func (u *usageSink) RecordUsage(ctx context.Context, record UsageRecord, costIn, costOut float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = append(u.records, record)
	return nil
}

type observer struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *observer) ObserveChat(provider, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type testProxy struct {
	*Proxy
	fake     *fakeProvider
	built    *int
	sink     *usageSink
	observer *observer
}

func newTestProxy(fake *fakeProvider, apiKey string, attempts int) testProxy {
	factory := NewFactory()
	built := 0
	factory.Register("fake", func(cfg *ProviderConfig) Provider {
		built++
		fake.config = cfg
		return fake
	})
	sink := &usageSink{}
	obs := &observer{}
	proxy := NewProxy(ProxyConfig{
		Provider:      ProviderConfig{ProviderName: "fake", APIKey: apiKey},
		Timeout:       time.Second,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, factory, WithUsageSink(sink), WithMetrics(obs))
	return testProxy{Proxy: proxy, fake: fake, built: &built, sink: sink, observer: obs}
}

func collect(seq func(func(string) bool)) []string {
	var out []string
	for fragment := range seq {
		out = append(out, fragment)
	}
	return out
}

func TestDemoModeMakesNoTransportCalls(t *testing.T) {
	tp := newTestProxy(&fakeProvider{}, "", 2)
	require.True(t, tp.DemoMode())
	sess := NewSession("s1", "")

	reply, err := tp.Reply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, DemoReply, reply)

	seq, err := tp.StreamReply(context.Background(), sess, "otra vez")
	require.NoError(t, err)
	assert.Equal(t, []string{DemoReply}, collect(seq))

	assert.Equal(t, "demo", tp.HealthCheck(context.Background()).Status)
	assert.Zero(t, tp.fake.transportCalls())
	assert.Zero(t, *tp.built, "no provider is built in demo mode")
	assert.Empty(t, tp.sink.records)

	turns := sess.Turns()
	require.Len(t, turns, 4)
	assert.True(t, turns[1].Fallback)
	assert.Equal(t, flow.Done, sess.State())
}

func TestReplyCarriesSystemAndHistory(t *testing.T) {
	fake := &fakeProvider{replies: []fakeResult{{text: "Primera"}, {text: "Segunda"}}}
	tp := newTestProxy(fake, "key", 1)
	sess := NewSession("s1", "ROL: prueba")

	reply, err := tp.Reply(context.Background(), sess, "  tengo gastritis  ")
	require.NoError(t, err)
	assert.Equal(t, "Primera", reply)

	_, err = tp.Reply(context.Background(), sess, "¿y ahora?")
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	first, second := fake.requests[0], fake.requests[1]
	assert.Equal(t, "ROL: prueba", first.System)
	assert.Empty(t, first.History)
	assert.Equal(t, "tengo gastritis", first.Message)
	assert.Equal(t, []Turn{
		{Role: contract.RoleUser, Text: "tengo gastritis"},
		{Role: contract.RoleAssistant, Text: "Primera"},
	}, second.History)
	for _, turn := range second.History {
		assert.NotEqual(t, "ROL: prueba", turn.Text, "system instruction is never re-sent as a turn")
	}
	assert.Equal(t, flow.Done, sess.State())
	assert.Len(t, tp.sink.records, 2)
	assert.Equal(t, []string{OutcomeOK, OutcomeOK}, tp.observer.outcomes)
}

func TestReplyRejectsBlankMessage(t *testing.T) {
	tp := newTestProxy(&fakeProvider{}, "key", 1)
	sess := NewSession("s1", "")
	_, err := tp.Reply(context.Background(), sess, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = tp.StreamReply(context.Background(), sess, "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, tp.fake.transportCalls())
	assert.Empty(t, sess.Turns())
}

func TestReplyEmptyUpstreamUsesFallback(t *testing.T) {
	tp := newTestProxy(&fakeProvider{replies: []fakeResult{{text: "  "}}}, "key", 1)
	sess := NewSession("s1", "")
	reply, err := tp.Reply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, EmptyReply, reply)
	assert.Equal(t, []string{OutcomeEmpty}, tp.observer.outcomes)
}

func TestReplyRetriesOnce(t *testing.T) {
	fake := &fakeProvider{replies: []fakeResult{{err: errors.New("503")}, {text: "listo"}}}
	tp := newTestProxy(fake, "key", 2)
	sess := NewSession("s1", "")

	reply, err := tp.Reply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, "listo", reply)
	assert.Equal(t, 2, fake.chatCalls)
	require.Len(t, tp.sink.records, 2)
	assert.False(t, tp.sink.records[0].Success)
	assert.True(t, tp.sink.records[1].Success)
}

func TestReplyTransportFailureNeverEscapes(t *testing.T) {
	fake := &fakeProvider{replies: []fakeResult{{err: errors.New("connection reset")}}}
	tp := newTestProxy(fake, "key", 2)
	sess := NewSession("s1", "")

	reply, err := tp.Reply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, NetworkReply, reply)
	assert.Equal(t, 2, fake.chatCalls)
	assert.Equal(t, flow.Failed, sess.State())

	fake.replies = []fakeResult{{text: "de vuelta"}}
	fake.chatCalls = 0
	reply, err = tp.Reply(context.Background(), sess, "¿sigues ahí?")
	require.NoError(t, err)
	assert.Equal(t, "de vuelta", reply)
	assert.Empty(t, fake.requests[len(fake.requests)-1].History, "failed exchanges are not replayed upstream")
}

func TestReplyTimeout(t *testing.T) {
	fake := &fakeProvider{block: true}
	tp := newTestProxy(fake, "key", 3)
	tp.cfg.Timeout = 20 * time.Millisecond
	sess := NewSession("s1", "")

	reply, err := tp.Reply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, NetworkReply, reply)
	assert.Equal(t, 1, fake.chatCalls, "deadline errors are not retried")
}

func TestStreamingConcatenation(t *testing.T) {
	fake := &fakeProvider{scripts: []fakeScript{{chunks: []string{"Hola ", "Pepe", "!"}}}}
	tp := newTestProxy(fake, "key", 1)
	sess := NewSession("s1", "")

	seq, err := tp.StreamReply(context.Background(), sess, "hola")
	require.NoError(t, err)
	fragments := collect(seq)
	assert.Equal(t, []string{"Hola ", "Pepe", "!"}, fragments)

	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "Hola Pepe!", turns[1].Text)
	assert.False(t, turns[1].Fallback)
	assert.Equal(t, flow.Done, sess.State())

	assert.Empty(t, collect(seq), "a reply sequence cannot be replayed")
	assert.Equal(t, 1, fake.streamCalls)
}

func TestStreamBusyWhilePending(t *testing.T) {
	fake := &fakeProvider{scripts: []fakeScript{{chunks: []string{"ok"}}}}
	tp := newTestProxy(fake, "key", 1)
	sess := NewSession("s1", "")

	seq, err := tp.StreamReply(context.Background(), sess, "uno")
	require.NoError(t, err)
	assert.Equal(t, flow.Pending, sess.State())

	_, err = tp.Reply(context.Background(), sess, "dos")
	assert.ErrorIs(t, err, flow.ErrBusy)
	_, err = tp.StreamReply(context.Background(), sess, "tres")
	assert.ErrorIs(t, err, flow.ErrBusy)
	assert.ErrorIs(t, sess.Close(), flow.ErrBusy)

	assert.Equal(t, []string{"ok"}, collect(seq))
	assert.Equal(t, flow.Done, sess.State())
	assert.NoError(t, sess.Close())
}

func TestStreamFailureBeforeFirstFragmentIsRetried(t *testing.T) {
	fake := &fakeProvider{scripts: []fakeScript{
		{openErr: errors.New("dial tcp: refused")},
		{chunks: []string{"recuperado"}},
	}}
	tp := newTestProxy(fake, "key", 2)
	sess := NewSession("s1", "")

	seq, err := tp.StreamReply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, []string{"recuperado"}, collect(seq))
	assert.Equal(t, 2, fake.streamCalls)
}

func TestStreamFailureWithoutFragmentsYieldsFallback(t *testing.T) {
	fake := &fakeProvider{scripts: []fakeScript{{err: errors.New("stream reset")}}}
	tp := newTestProxy(fake, "key", 2)
	sess := NewSession("s1", "")

	seq, err := tp.StreamReply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, []string{NetworkReply}, collect(seq))
	assert.Equal(t, 2, fake.streamCalls)
	assert.Equal(t, flow.Failed, sess.State())
}

func TestStreamEmptyYieldsEmptyFallback(t *testing.T) {
	tp := newTestProxy(&fakeProvider{scripts: []fakeScript{{}}}, "key", 1)
	sess := NewSession("s1", "")
	seq, err := tp.StreamReply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, []string{EmptyReply}, collect(seq))
	assert.Equal(t, flow.Done, sess.State())
}

func TestStreamMidwayFailureAppendsFallback(t *testing.T) {
	fake := &fakeProvider{scripts: []fakeScript{{chunks: []string{"La rodilla "}, err: errors.New("EOF")}}}
	tp := newTestProxy(fake, "key", 2)
	sess := NewSession("s1", "")

	seq, err := tp.StreamReply(context.Background(), sess, "dolor de rodilla")
	require.NoError(t, err)
	fragments := collect(seq)
	assert.Equal(t, []string{"La rodilla ", "\n\n" + NetworkReply}, fragments)
	assert.Equal(t, 1, fake.streamCalls, "no retry after a fragment was delivered")

	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, strings.Join(fragments, ""), turns[1].Text)
	assert.True(t, turns[1].Fallback)
	assert.Equal(t, flow.Failed, sess.State())
}

func TestStreamConsumerStopsEarly(t *testing.T) {
	fake := &fakeProvider{scripts: []fakeScript{{chunks: []string{"uno ", "dos ", "tres"}}}}
	tp := newTestProxy(fake, "key", 1)
	sess := NewSession("s1", "")

	seq, err := tp.StreamReply(context.Background(), sess, "hola")
	require.NoError(t, err)
	for fragment := range seq {
		assert.Equal(t, "uno ", fragment)
		break
	}

	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "uno ", turns[1].Text)
	assert.Equal(t, flow.Failed, sess.State())
	assert.Equal(t, []string{OutcomeCancelled}, tp.observer.outcomes)
	_, streaming := sess.Pending()
	assert.False(t, streaming)
}

func TestUnknownProviderFallsBack(t *testing.T) {
	proxy := NewProxy(ProxyConfig{Provider: ProviderConfig{ProviderName: "nope", APIKey: "key"}}, NewFactory())
	sess := NewSession("s1", "")
	reply, err := proxy.Reply(context.Background(), sess, "hola")
	require.NoError(t, err)
	assert.Equal(t, NetworkReply, reply)
}

func TestHealthCheckMarksUnhealthyAfterThreeFailures(t *testing.T) {
	fake := &fakeProvider{healthErr: errors.New("401")}
	tp := newTestProxy(fake, "key", 1)
	assert.Nil(t, tp.LastHealth())

	assert.Equal(t, HealthError, tp.HealthCheck(context.Background()).Status)
	assert.Equal(t, HealthError, tp.HealthCheck(context.Background()).Status)
	assert.Equal(t, HealthUnhealthy, tp.HealthCheck(context.Background()).Status)
	assert.Equal(t, HealthUnhealthy, tp.LastHealth().Status)

	fake.healthErr = nil
	assert.Equal(t, HealthOK, tp.HealthCheck(context.Background()).Status)
	assert.Equal(t, HealthOK, tp.LastHealth().Status)
}

func TestHealthMonitorRunsUntilCancelled(t *testing.T) {
	fake := &fakeProvider{}
	tp := newTestProxy(fake, "key", 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		(&HealthMonitor{Proxy: tp.Proxy, Interval: 5 * time.Millisecond}).Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.healthCalls >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
