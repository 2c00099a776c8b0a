package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/phonalabs/phona-core/internal/align"
	"github.com/phonalabs/phona-core/internal/bus"
	"github.com/phonalabs/phona-core/internal/config"
	"github.com/phonalabs/phona-core/internal/protocol"
	"github.com/phonalabs/phona-core/internal/recognizer"
	"github.com/phonalabs/phona-core/internal/sessionstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Service consumes attempt audio from the bus, recognizes the phoneme
// sequence and publishes an alignment score against the session's
// reference phonemes.
type Service struct {
	cfg        config.ScoringConfig
	decCfg     config.DecoderConfig
	recCfg     config.RecognizerConfig
	bus        *bus.Client
	recognizer recognizer.Recognizer
	store      *sessionstore.Store
	logger     *slog.Logger

	mu       sync.Mutex
	attempts map[string]*attemptState
	refs     map[string][]string

	ctx    context.Context
	cancel context.CancelFunc
	subs   []*nats.Subscription
	wg     sync.WaitGroup
	ready  bool

	attemptCounter metric.Int64Counter
	scoreHistogram metric.Int64Histogram
}

type attemptState struct {
	SessionID  string
	AttemptID  string
	Buffer     []byte
	SampleRate int
	Channels   int
	Inflight   bool
}

func NewService(parent context.Context, cfg config.ScoringConfig, decCfg config.DecoderConfig, recCfg config.RecognizerConfig, busClient *bus.Client, rec recognizer.Recognizer, store *sessionstore.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	logger := log.With(slog.String("component", "scoring-service"))

	meter := otel.Meter("github.com/phonalabs/phona-core/scoring")
	attemptCounter, err := meter.Int64Counter("phona.scoring.attempts",
		metric.WithDescription("Scored pronunciation attempts"))
	if err != nil {
		logger.Warn("failed to initialize attempt counter", slogError(err))
	}
	scoreHistogram, err := meter.Int64Histogram("phona.scoring.score",
		metric.WithDescription("Pronunciation score distribution"))
	if err != nil {
		logger.Warn("failed to initialize score histogram", slogError(err))
	}

	return &Service{
		cfg:        cfg,
		decCfg:     decCfg,
		recCfg:     recCfg,
		bus:        busClient,
		recognizer: rec,
		store:      store,
		logger:     logger,
		attempts:   make(map[string]*attemptState),
		refs:       make(map[string][]string),
		ctx:        ctx,
		cancel:     cancel,

		attemptCounter: attemptCounter,
		scoreHistogram: scoreHistogram,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	frameSub, err := s.bus.Conn().Subscribe(protocol.SubjectAudioAttemptPrefix+".>", s.handleFrame)
	if err != nil {
		return fmt.Errorf("subscribe attempt audio: %w", err)
	}
	s.subs = append(s.subs, frameSub)

	readySub, err := s.bus.Conn().Subscribe(protocol.SubjectPracticeReady, s.handleReady)
	if err != nil {
		return fmt.Errorf("subscribe practice ready: %w", err)
	}
	s.subs = append(s.subs, readySub)
	s.ready = true
	return nil
}

func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return !s.cfg.Enabled || s.ready
}

// handleReady caches the reference phonemes announced for a session so
// attempts can be scored without a store round trip.
func (s *Service) handleReady(msg *nats.Msg) {
	var ready protocol.PracticeReady
	if err := json.Unmarshal(msg.Data, &ready); err != nil {
		s.logger.Warn("failed to decode practice ready", slogError(err))
		return
	}
	if ready.Error != "" || len(ready.Phonemes) == 0 {
		return
	}
	s.mu.Lock()
	s.refs[ready.SessionID] = ready.Phonemes
	s.mu.Unlock()
}

func (s *Service) handleFrame(msg *nats.Msg) {
	var frame protocol.AudioFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		s.logger.Warn("failed to decode audio frame", slogError(err))
		return
	}
	if frame.SessionID == "" {
		return
	}

	key := frame.SessionID + "/" + frame.AttemptID
	s.mu.Lock()
	state := s.attempts[key]
	if state == nil {
		state = &attemptState{SessionID: frame.SessionID, AttemptID: frame.AttemptID}
		s.attempts[key] = state
	}
	state.Buffer = append(state.Buffer, frame.PCM...)
	if frame.SampleRate > 0 {
		state.SampleRate = frame.SampleRate
	}
	if frame.Channels > 0 {
		state.Channels = frame.Channels
	}
	s.mu.Unlock()

	if frame.Final {
		s.scheduleScore(key)
	}
}

func (s *Service) scheduleScore(key string) {
	s.mu.Lock()
	state := s.attempts[key]
	if state == nil || state.Inflight {
		s.mu.Unlock()
		return
	}
	state.Inflight = true
	pcm := append([]byte(nil), state.Buffer...)
	sampleRate := state.SampleRate
	channels := state.Channels
	sessionID := state.SessionID
	attemptID := state.AttemptID
	delete(s.attempts, key)
	s.mu.Unlock()

	if attemptID == "" {
		attemptID = uuid.NewString()
	}

	if sampleRate <= 0 {
		sampleRate = s.recCfg.SampleRate
	}
	if channels <= 0 {
		channels = s.recCfg.Channels
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, time.Duration(s.cfg.DecodeTimeoutMS)*time.Millisecond)
		defer cancel()

		report := s.scoreAttempt(ctx, sessionID, attemptID, pcm, sampleRate, channels)
		s.publishReport(report)
		s.recordAttempt(ctx, report)

		if s.attemptCounter != nil {
			s.attemptCounter.Add(ctx, 1)
		}
		if s.scoreHistogram != nil && report.Error == "" {
			s.scoreHistogram.Record(ctx, int64(report.Score))
		}
	}()
}

func (s *Service) scoreAttempt(ctx context.Context, sessionID, attemptID string, pcm []byte, sampleRate, channels int) protocol.ScoreReport {
	report := protocol.ScoreReport{
		SessionID: sessionID,
		AttemptID: attemptID,
		Timestamp: time.Now().UTC(),
	}

	reference, err := s.lookupReference(ctx, sessionID)
	if err != nil {
		report.Error = "unknown session"
		return report
	}

	rec := s.recognizer
	if s.decCfg.BiasExpected {
		if biaser, ok := rec.(recognizer.ExpectedBiaser); ok {
			rec = biaser.WithExpected(reference)
		}
	}

	segments, err := rec.Recognize(ctx, pcm, sampleRate, channels)
	if err != nil {
		s.logger.Warn("attempt recognition failed",
			slog.String("session_id", sessionID), slogError(err))
		report.Error = "recognition failed"
		return report
	}

	result := align.Score(reference, SymbolsFromSegments(segments))
	report.Score = result.Score
	report.Segments = segments
	report.Details = result.Details
	return report
}

func (s *Service) lookupReference(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	reference, ok := s.refs[sessionID]
	s.mu.Unlock()
	if ok {
		return reference, nil
	}
	if s.store != nil {
		sess, err := s.store.GetSession(ctx, sessionID)
		if err == nil {
			s.mu.Lock()
			s.refs[sessionID] = sess.Phonemes
			s.mu.Unlock()
			return sess.Phonemes, nil
		}
		if !errors.Is(err, sessionstore.ErrNotFound) {
			s.logger.Warn("session lookup failed",
				slog.String("session_id", sessionID), slogError(err))
		}
	}
	return nil, sessionstore.ErrNotFound
}

func (s *Service) publishReport(report protocol.ScoreReport) {
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("failed to marshal score report", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectScoreResult, data); err != nil {
		s.logger.Warn("failed to publish score report", slogError(err))
	}
}

func (s *Service) recordAttempt(ctx context.Context, report protocol.ScoreReport) {
	if s.store == nil || report.Error != "" {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	err = s.store.RecordAttempt(ctx, sessionstore.Attempt{
		SessionID: report.SessionID,
		AttemptID: report.AttemptID,
		Score:     report.Score,
		Report:    payload,
	})
	if err != nil {
		s.logger.Warn("failed to record attempt", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
