package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lazoapp/lazo/engine/infra/pubsub"
	"github.com/lazoapp/lazo/pkg/logger"
)

// BroadcastTopicSuffix names the unfiltered feed topic segment.
const BroadcastTopicSuffix = "all"

// RecordHandler consumes one canonical notification.
type RecordHandler func(n Notification)

// AlertHandler consumes the user-facing alert pair for one notification.
type AlertHandler func(title, description string)

// Options tunes a Service beyond its defaults.
type Options struct {
	// TopicPrefix namespaces feed topics, "notifications" by default.
	TopicPrefix string
	// AckTimeout bounds the transport subscribe acknowledgment.
	AckTimeout time.Duration
	// BackoffBase and BackoffCap bound reconnect delays.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// MaxAttempts caps reconnects per subscribe; 0 retries forever.
	MaxAttempts int
	// Chime plays the per-notification audio cue; NopChime by default.
	Chime Chime
}

// Service is the notification delivery pipeline facade. It owns the channel
// manager and one reconnect supervisor per topic; callers interact only
// through Subscribe and LoadHistory and never touch channel or retry state.
type Service struct {
	manager  *ChannelManager
	enricher *Enricher
	history  *HistoryLoader
	metrics  *Metrics
	chime    Chime

	topicPrefix string
	backoffBase time.Duration
	backoffCap  time.Duration
	maxAttempts int

	mu          sync.Mutex
	supervisors map[string]*ReconnectSupervisor
}

// NewService wires the pipeline over a transport provider and a repository.
func NewService(provider pubsub.Provider, repo Repository, opts *Options) *Service {
	if opts == nil {
		opts = &Options{}
	}
	prefix := opts.TopicPrefix
	if prefix == "" {
		prefix = "notifications"
	}
	chime := opts.Chime
	if chime == nil {
		chime = NopChime{}
	}
	metrics := &Metrics{}
	return &Service{
		manager:     NewChannelManager(provider, opts.AckTimeout),
		enricher:    NewEnricher(repo, metrics),
		history:     NewHistoryLoader(repo, metrics),
		metrics:     metrics,
		chime:       chime,
		topicPrefix: prefix,
		backoffBase: opts.BackoffBase,
		backoffCap:  opts.BackoffCap,
		maxAttempts: opts.MaxAttempts,
		supervisors: map[string]*ReconnectSupervisor{},
	}
}

// Topic returns the feed topic for a receiver. A known receiver subscribes
// to its private topic, the transport-side filter analog; an empty receiver
// falls back to the broadcast topic and rows are filtered client-side.
func (s *Service) Topic(receiverID string) string {
	if receiverID == "" {
		return s.topicPrefix + ":" + BroadcastTopicSuffix
	}
	return s.topicPrefix + ":user:" + receiverID
}

// Metrics returns a snapshot of pipeline counters.
func (s *Service) Metrics() MetricsView {
	return s.metrics.View()
}

// Subscribe establishes the push pipeline for receiverID and returns an
// idempotent cleanup function. It never blocks on the transport and never
// surfaces transport errors: failed subscribes are retried silently with
// bounded exponential backoff until cleanup.
func (s *Service) Subscribe(
	ctx context.Context,
	receiverID string,
	onRecord RecordHandler,
	onAlert AlertHandler,
) func() {
	topic := s.Topic(receiverID)
	supervisor := s.supervisorFor(topic)
	// Fresh external subscribe: no backoff state carries over.
	supervisor.Reset()

	handler := s.rowHandler(receiverID, onRecord, onAlert)
	go s.connect(ctx, topic, supervisor, handler)

	var once sync.Once
	return func() {
		once.Do(func() {
			supervisor.Cancel()
			s.manager.RemoveChannel(topic)
		})
	}
}

// connect runs one subscribe attempt and arms the supervisor on failure.
func (s *Service) connect(
	ctx context.Context,
	topic string,
	supervisor *ReconnectSupervisor,
	handler RowHandler,
) {
	onFailure := func(failedTopic string, err error) {
		logger.FromContext(ctx).Warn("subscription failed; scheduling reconnect",
			"topic", failedTopic, "error", err)
		s.scheduleReconnect(ctx, failedTopic, supervisor, handler)
	}
	result := s.manager.GetOrCreateChannel(ctx, topic, handler, onFailure)
	if err := result.Await(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrChannelRemoved) {
			// Deliberate teardown, not a transport failure.
			return
		}
		logger.FromContext(ctx).Warn("subscribe rejected; scheduling reconnect",
			"topic", topic, "error", err)
		s.scheduleReconnect(ctx, topic, supervisor, handler)
	}
}

func (s *Service) scheduleReconnect(
	ctx context.Context,
	topic string,
	supervisor *ReconnectSupervisor,
	handler RowHandler,
) {
	scheduled := supervisor.ScheduleRetry(func() {
		s.metrics.recordReconnect()
		s.manager.RemoveChannel(topic)
		s.connect(ctx, topic, supervisor, handler)
	})
	if !scheduled {
		logger.FromContext(ctx).Error("reconnect attempts exhausted", "topic", topic)
	}
}

// rowHandler decodes, filters, enriches and delivers one inbound row.
// Exactly one sink invocation per row; lookup failures degrade to defaults.
func (s *Service) rowHandler(receiverID string, onRecord RecordHandler, onAlert AlertHandler) RowHandler {
	return func(ctx context.Context, msg pubsub.Message) {
		s.metrics.recordRowReceived()
		row, err := DecodeChangeRow(msg.Payload)
		if err != nil {
			s.metrics.recordDecodeFailure()
			logger.FromContext(ctx).Warn("dropping undecodable feed row",
				"topic", msg.Topic, "error", err)
			return
		}
		if receiverID != "" && row.ReceiverID != receiverID {
			s.metrics.recordRowFiltered()
			return
		}
		n, alert := s.enricher.Enrich(ctx, row)
		if onRecord != nil {
			onRecord(n)
		}
		if onAlert != nil {
			onAlert(alert.Title, alert.Description)
		}
		s.metrics.recordRowDelivered()
		if err := s.chime.Play(ctx); err != nil {
			s.metrics.recordChimeFailure()
			logger.FromContext(ctx).Debug("chime playback failed", "error", err)
		}
	}
}

// LoadHistory returns up to limit materialized notifications for receiverID,
// newest first, independent of any subscription state.
func (s *Service) LoadHistory(ctx context.Context, receiverID string, limit int) ([]Notification, error) {
	return s.history.LoadHistory(ctx, receiverID, limit)
}

// Status reports the connection state of the receiver's topic.
func (s *Service) Status(receiverID string) Status {
	return s.manager.Status(s.Topic(receiverID))
}

func (s *Service) supervisorFor(topic string) *ReconnectSupervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sup, ok := s.supervisors[topic]; ok {
		return sup
	}
	sup := NewReconnectSupervisor(s.backoffBase, s.backoffCap, s.maxAttempts)
	s.supervisors[topic] = sup
	return sup
}
