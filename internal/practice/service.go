package practice

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/phonalabs/phona-core/internal/bus"
	"github.com/phonalabs/phona-core/internal/config"
	"github.com/phonalabs/phona-core/internal/g2p"
	"github.com/phonalabs/phona-core/internal/phoneme"
	"github.com/phonalabs/phona-core/internal/protocol"
	"github.com/phonalabs/phona-core/internal/sessionstore"
)

// Service opens practice sessions: it converts the practice text to a
// normalized reference phoneme sequence, persists it and announces it
// on the bus so the scorer can align attempts against it.
type Service struct {
	cfg       config.PracticeConfig
	bus       *bus.Client
	converter g2p.Converter
	store     *sessionstore.Store
	logger    *slog.Logger
	sub       *nats.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewService(parent context.Context, cfg config.PracticeConfig, busClient *bus.Client, converter g2p.Converter, store *sessionstore.Store, logger *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		cfg:       cfg,
		bus:       busClient,
		converter: converter,
		store:     store,
		logger:    logger.With(slog.String("component", "practice")),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectPracticeInit, s.handleInit)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return !s.cfg.Enabled || s.sub != nil
}

func (s *Service) handleInit(msg *nats.Msg) {
	var init protocol.PracticeInit
	if err := json.Unmarshal(msg.Data, &init); err != nil {
		s.logger.Warn("failed to decode practice init", slogError(err))
		return
	}
	if init.SessionID == "" || strings.TrimSpace(init.Text) == "" {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
		defer cancel()
		s.openSession(ctx, init)
	}()
}

func (s *Service) openSession(ctx context.Context, init protocol.PracticeInit) {
	ready := protocol.PracticeReady{
		SessionID: init.SessionID,
		Text:      init.Text,
		Timestamp: time.Now().UTC(),
	}

	reference, err := s.referencePhonemes(ctx, init.Text)
	if err != nil {
		s.logger.Warn("g2p conversion failed",
			slog.String("session_id", init.SessionID), slogError(err))
		ready.Error = "phoneme conversion failed"
		s.publishReady(ready)
		return
	}
	ready.Phonemes = reference
	ready.IPA = strings.Join(reference, "")

	if s.store != nil {
		if err := s.store.SaveSession(ctx, init.SessionID, init.Text, reference); err != nil {
			s.logger.Warn("failed to persist session",
				slog.String("session_id", init.SessionID), slogError(err))
		}
	}

	s.publishReady(ready)

	if init.WantAudio {
		s.requestReferenceAudio(init)
	}
}

// referencePhonemes runs grapheme-to-phoneme conversion and normalizes
// the output into the atomic symbols the scorer aligns against. The
// converter may emit ARPAbet; ConvertARPA maps it to IPA first.
func (s *Service) referencePhonemes(ctx context.Context, text string) ([]string, error) {
	raw, err := s.converter.Convert(ctx, text)
	if err != nil {
		return nil, err
	}
	return phoneme.Normalize(phoneme.ConvertARPA(raw)), nil
}

func (s *Service) publishReady(ready protocol.PracticeReady) {
	data, err := json.Marshal(ready)
	if err != nil {
		s.logger.Warn("failed to marshal practice ready", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectPracticeReady, data); err != nil {
		s.logger.Warn("failed to publish practice ready", slogError(err))
	}
}

func (s *Service) requestReferenceAudio(init protocol.PracticeInit) {
	voice := init.Voice
	if voice == "" {
		voice = s.cfg.DefaultVoice
	}
	req := protocol.TTSRequest{
		SessionID: init.SessionID,
		Text:      init.Text,
		Voice:     voice,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectTTSRequest, data); err != nil {
		s.logger.Warn("failed to request reference audio", slogError(err))
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
