package utils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall/strategy-engine-go/log"
	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing"
	"github.com/pitwall/strategy-engine-go/pkg/utils/broadcast"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already registered")
)

type (
	// SessionProcessingData bundles everything owned by one session:
	// the processor (with its history buffer) and the recommendation
	// fan-out. It is destroyed as a unit when the session ends.
	SessionProcessingData struct {
		Session                 *model.SessionInfo
		Processor               *processing.Processor
		RecommendationBroadcast broadcast.BroadcastServer[*model.StrategyRecommendation]
		recommendSource         chan *model.StrategyRecommendation
		lastData                atomic.Int64 // unix ms
	}
	// SessionLookup is the session-keyed registry. Sessions with no
	// data for the stale duration are reaped by a watchdog.
	SessionLookup struct {
		lookup        map[string]*SessionProcessingData
		mutex         sync.RWMutex
		staleDuration time.Duration
		processorOpts []processing.ProcessorOption
		ctx           context.Context
		cancel        context.CancelFunc
		l             *log.Logger
	}
	SessionLookupOption func(*SessionLookup)
)

func WithStaleDuration(d time.Duration) SessionLookupOption {
	return func(s *SessionLookup) {
		s.staleDuration = d
	}
}

// WithProcessorOptions applies the given options to every processor
// created by this lookup.
func WithProcessorOptions(opts ...processing.ProcessorOption) SessionLookupOption {
	return func(s *SessionLookup) {
		s.processorOpts = opts
	}
}

func WithLookupLogger(l *log.Logger) SessionLookupOption {
	return func(s *SessionLookup) {
		s.l = l
	}
}

func NewSessionLookup(opts ...SessionLookupOption) *SessionLookup {
	ctx, cancel := context.WithCancel(context.Background())
	ret := &SessionLookup{
		lookup: make(map[string]*SessionProcessingData),
		ctx:    ctx,
		cancel: cancel,
		l:      log.Default().Named("sessions"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.staleDuration > 0 {
		go ret.watchdog()
	}
	return ret
}

// AddSession registers a new session. An empty key gets a generated
// one. Config validation errors are fatal to this session only.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *SessionLookup) AddSession(key string, cfg *model.SessionConfig) (
	*SessionProcessingData, error,
) {
	proc, err := processing.NewProcessor(cfg, s.processorOpts...)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	if key == "" {
		key = id
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.lookup[key]; ok {
		return nil, ErrSessionExists
	}
	source := make(chan *model.StrategyRecommendation)
	spd := &SessionProcessingData{
		Session: &model.SessionInfo{
			ID:        id,
			Key:       key,
			Name:      cfg.Name,
			CreatedAt: time.Now(),
		},
		Processor:       proc,
		recommendSource: source,
		RecommendationBroadcast: broadcast.NewBroadcastServer(
			key, "recommendation", source),
	}
	spd.lastData.Store(time.Now().UnixMilli())
	s.lookup[key] = spd
	s.l.Info("session registered", log.String("key", key), log.String("name", cfg.Name))
	return spd, nil
}

func (s *SessionLookup) GetSession(key string) (*SessionProcessingData, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if ret, ok := s.lookup[key]; ok {
		return ret, nil
	}
	return nil, ErrSessionNotFound
}

// RemoveSession tears the session down and releases its buffer.
func (s *SessionLookup) RemoveSession(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if spd, ok := s.lookup[key]; ok {
		spd.close()
		delete(s.lookup, key)
		s.l.Info("session removed", log.String("key", key))
	}
}

func (s *SessionLookup) GetSessions() []*model.SessionInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := make([]*model.SessionInfo, 0, len(s.lookup))
	for _, spd := range s.lookup {
		ret = append(ret, spd.Info())
	}
	return ret
}

func (s *SessionLookup) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key, spd := range s.lookup {
		spd.close()
		delete(s.lookup, key)
	}
}

func (s *SessionLookup) Close() {
	s.cancel()
	s.Clear()
}

func (s *SessionLookup) watchdog() {
	ticker := time.NewTicker(s.staleDuration / 4)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.staleDuration).UnixMilli()
			for _, key := range s.staleKeys(cutoff) {
				s.l.Info("removing stale session", log.String("key", key))
				s.RemoveSession(key)
			}
		}
	}
}

func (s *SessionLookup) staleKeys(cutoff int64) []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := make([]string, 0)
	for key, spd := range s.lookup {
		if spd.lastData.Load() < cutoff {
			ret = append(ret, key)
		}
	}
	return ret
}

// MarkData records that the session received data.
func (spd *SessionProcessingData) MarkData() {
	spd.lastData.Store(time.Now().UnixMilli())
}

// Info returns a copy of the session info with the current last-data
// time filled in.
func (spd *SessionProcessingData) Info() *model.SessionInfo {
	info := *spd.Session
	info.LastDataAt = time.UnixMilli(spd.lastData.Load())
	return &info
}

// PublishRecommendation feeds the fan-out without ever blocking the
// ingest path.
func (spd *SessionProcessingData) PublishRecommendation(rec *model.StrategyRecommendation) {
	select {
	case spd.recommendSource <- rec:
	default:
	}
}

func (spd *SessionProcessingData) close() {
	spd.RecommendationBroadcast.Close()
}
