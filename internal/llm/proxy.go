package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bioneuro/backend/internal/llm/contract"
	"bioneuro/backend/internal/llm/providers"
)

var (
	ErrEmptyMessage        = errors.New("message is required")
	errUnsupportedProvider = errors.New("unsupported llm provider")
	errConsumerGone        = errors.New("reply consumer stopped early")
)

const (
	OutcomeOK        = "ok"
	OutcomeDemo      = "demo"
	OutcomeEmpty     = "empty"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

type ProxyConfig struct {
	Provider      ProviderConfig
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	MaxRPM        int
}

// UsageSink receives one record per upstream call. Records never carry
// visitor text.
type UsageSink interface {
	RecordUsage(ctx context.Context, record UsageRecord, costIn, costOut float64) error
}

type ChatObserver interface {
	ObserveChat(provider, outcome string, elapsed time.Duration)
}

type ProxyOption func(*Proxy)

func WithLogger(log *zap.Logger) ProxyOption {
	return func(p *Proxy) {
		if log != nil {
			p.log = log
		}
	}
}

func WithMetrics(observer ChatObserver) ProxyOption {
	return func(p *Proxy) { p.observer = observer }
}

func WithUsageSink(sink UsageSink) ProxyOption {
	return func(p *Proxy) { p.sink = sink }
}

// Proxy forwards visitor turns to the configured provider. Every failure
// resolves to a displayable fallback string; only validation and busy
// errors reach the caller.
type Proxy struct {
	cfg      ProxyConfig
	factory  *Factory
	retrier  providers.Retrier
	limiter  *rate.Limiter
	log      *zap.Logger
	observer ChatObserver
	sink     UsageSink

	healthMu       sync.Mutex
	lastHealth     *HealthCheckResult
	healthFailures int
}

type usageAware interface {
	LastUsageRecord() UsageRecord
}

func NewProxy(cfg ProxyConfig, factory *Factory, opts ...ProxyOption) *Proxy {
	cfg.Provider = NormalizeConfig(cfg.Provider)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if factory == nil {
		factory = NewFactory()
	}
	p := &Proxy{
		cfg:     cfg,
		factory: factory,
		retrier: providers.Retrier{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
		log:     zap.NewNop(),
	}
	if cfg.MaxRPM > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxRPM)), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DemoMode reports whether no credential is configured.
func (p *Proxy) DemoMode() bool {
	return strings.TrimSpace(p.cfg.Provider.APIKey) == ""
}

func (p *Proxy) ProviderName() string { return p.cfg.Provider.ProviderName }

// Reply sends text as the next user turn and returns the complete reply.
func (p *Proxy) Reply(ctx context.Context, sess *Session, text string) (string, error) {
	req, err := p.begin(sess, text)
	if err != nil {
		return "", err
	}
	start := time.Now()

	if p.DemoMode() {
		p.settle(sess, DemoReply, true, nil, OutcomeDemo, start)
		return DemoReply, nil
	}

	reply, err := p.complete(ctx, req)
	switch {
	case err != nil:
		p.log.Warn("chat reply failed", zap.String("session_id", sess.ID), zap.String("provider", p.ProviderName()), zap.Error(err))
		p.settle(sess, NetworkReply, true, err, OutcomeError, start)
		return NetworkReply, nil
	case strings.TrimSpace(reply) == "":
		p.settle(sess, EmptyReply, true, nil, OutcomeEmpty, start)
		return EmptyReply, nil
	}
	p.settle(sess, reply, false, nil, OutcomeOK, start)
	return reply, nil
}

// StreamReply sends text as the next user turn and returns the reply as a
// lazy sequence of fragments. The sequence must be ranged exactly once; the
// turn stays in flight until it is. A second range yields nothing.
func (p *Proxy) StreamReply(ctx context.Context, sess *Session, text string) (iter.Seq[string], error) {
	req, err := p.begin(sess, text)
	if err != nil {
		return nil, err
	}
	acc := sess.transcript.Open()
	var used atomic.Bool
	return func(yield func(string) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		p.stream(ctx, sess, req, acc, yield)
	}, nil
}

func (p *Proxy) begin(sess *Session, text string) (ChatRequest, error) {
	message := strings.TrimSpace(text)
	if message == "" {
		return ChatRequest{}, ErrEmptyMessage
	}
	if err := sess.machine.Begin(); err != nil {
		return ChatRequest{}, err
	}
	history := sess.transcript.History()
	sess.transcript.Append(Turn{Role: contract.RoleUser, Text: message})
	return ChatRequest{System: sess.system, History: history, Message: message}, nil
}

func (p *Proxy) settle(sess *Session, reply string, fallback bool, err error, outcome string, start time.Time) {
	sess.transcript.Append(Turn{Role: contract.RoleAssistant, Text: reply, Fallback: fallback})
	sess.machine.Finish(err)
	p.observe(outcome, start)
}

func (p *Proxy) complete(ctx context.Context, req ChatRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	provider := p.provider()
	if provider == nil {
		return "", fmt.Errorf("%w: %s", errUnsupportedProvider, p.ProviderName())
	}
	var reply string
	err := p.retrier.Do(ctx, func() error {
		if err := p.wait(ctx); err != nil {
			return err
		}
		callStart := time.Now()
		out, err := provider.Chat(ctx, req)
		p.recordUsage(provider, "chat", callStart, err)
		if err != nil {
			return err
		}
		reply = out
		return nil
	})
	return reply, err
}

// fragmentSink forwards fragments to the consumer and the accumulator until
// the consumer stops.
type fragmentSink struct {
	acc     *Accumulator
	yield   func(string) bool
	stopped bool
}

func (s *fragmentSink) emit(fragment string) bool {
	if s.stopped || fragment == "" {
		return !s.stopped
	}
	s.acc.Append(fragment)
	if !s.yield(fragment) {
		s.stopped = true
	}
	return !s.stopped
}

func (p *Proxy) stream(ctx context.Context, sess *Session, req ChatRequest, acc *Accumulator, yield func(string) bool) {
	start := time.Now()
	out := &fragmentSink{acc: acc, yield: yield}
	finish := func(fallback bool, err error, outcome string) {
		sess.transcript.Commit(acc, fallback)
		sess.machine.Finish(err)
		p.observe(outcome, start)
	}

	if p.DemoMode() {
		out.emit(DemoReply)
		finish(true, nil, OutcomeDemo)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	provider := p.provider()
	if provider == nil {
		err := fmt.Errorf("%w: %s", errUnsupportedProvider, p.ProviderName())
		p.log.Error("chat stream failed", zap.String("session_id", sess.ID), zap.Error(err))
		out.emit(NetworkReply)
		finish(true, err, OutcomeError)
		return
	}

	// Retries are only possible before the first fragment reaches the
	// consumer.
	var (
		stream    ChunkStream
		callStart time.Time
	)
	err := p.retrier.Do(ctx, func() error {
		if err := p.wait(ctx); err != nil {
			return err
		}
		callStart = time.Now()
		s, err := provider.StreamChat(ctx, req)
		if err != nil {
			p.recordUsage(provider, "stream", callStart, err)
			return err
		}
		if s.Next() {
			stream = s
			return nil
		}
		err = s.Err()
		_ = s.Close()
		p.recordUsage(provider, "stream", callStart, err)
		return err
	})
	if err != nil {
		p.log.Warn("chat stream failed", zap.String("session_id", sess.ID), zap.String("provider", provider.Name()), zap.Error(err))
		out.emit(NetworkReply)
		finish(true, err, OutcomeError)
		return
	}
	if stream == nil {
		out.emit(EmptyReply)
		finish(true, nil, OutcomeEmpty)
		return
	}

	ok := out.emit(stream.Current())
	for ok && stream.Next() {
		ok = out.emit(stream.Current())
	}
	streamErr := stream.Err()
	_ = stream.Close()

	switch {
	case !ok:
		p.recordUsage(provider, "stream", callStart, errConsumerGone)
		finish(true, errConsumerGone, OutcomeCancelled)
	case streamErr != nil:
		p.recordUsage(provider, "stream", callStart, streamErr)
		p.log.Warn("chat stream interrupted", zap.String("session_id", sess.ID), zap.String("provider", provider.Name()), zap.Error(streamErr))
		out.emit("\n\n" + NetworkReply)
		finish(true, streamErr, OutcomeError)
	default:
		p.recordUsage(provider, "stream", callStart, nil)
		finish(false, nil, OutcomeOK)
	}
}

func (p *Proxy) provider() Provider {
	cfg := p.cfg.Provider
	return p.factory.CreateProvider(&cfg)
}

func (p *Proxy) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *Proxy) observe(outcome string, start time.Time) {
	if p.observer == nil {
		return
	}
	p.observer.ObserveChat(p.ProviderName(), outcome, time.Since(start))
}

func (p *Proxy) recordUsage(provider Provider, feature string, start time.Time, err error) {
	if p.sink == nil {
		return
	}
	record := UsageRecord{Provider: provider.Name(), Model: provider.GetConfig().ModelName}
	if aware, ok := provider.(usageAware); ok {
		record = aware.LastUsageRecord()
	}
	record.Feature = feature
	record.Success = err == nil
	record.ErrorMessage = ""
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	if record.Latency == 0 {
		record.Latency = time.Since(start)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cfg := provider.GetConfig()
	if err := p.sink.RecordUsage(ctx, record, cfg.CostPer1KInput, cfg.CostPer1KOutput); err != nil {
		p.log.Debug("usage not recorded", zap.Error(err))
	}
}
