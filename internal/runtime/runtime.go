package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phonalabs/phona-core/internal/acoustic"
	"github.com/phonalabs/phona-core/internal/bus"
	"github.com/phonalabs/phona-core/internal/capability"
	"github.com/phonalabs/phona-core/internal/config"
	"github.com/phonalabs/phona-core/internal/g2p"
	"github.com/phonalabs/phona-core/internal/natsserver"
	"github.com/phonalabs/phona-core/internal/practice"
	"github.com/phonalabs/phona-core/internal/recognizer"
	"github.com/phonalabs/phona-core/internal/scoring"
	"github.com/phonalabs/phona-core/internal/sessionstore"
	"github.com/phonalabs/phona-core/internal/tts"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	store, err := sessionstore.Open(ctx, r.cfg.SessionStore, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	registry, err := capability.NewRegistry(ctx, r.cfg.Node, busClient, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start capability registry: %w", err)
	}
	defer registry.Close()

	rec, err := buildRecognizer(r.cfg)
	if err != nil {
		return fmt.Errorf("failed to build recognizer: %w", err)
	}
	converter, err := buildConverter(r.cfg.G2P)
	if err != nil {
		return fmt.Errorf("failed to build g2p converter: %w", err)
	}

	scoringSvc := scoring.NewService(ctx, r.cfg.Scoring, r.cfg.Decoder, r.cfg.Recognizer, busClient, rec, store, r.logger)
	if err := scoringSvc.Start(); err != nil {
		return fmt.Errorf("failed to start scoring service: %w", err)
	}
	defer scoringSvc.Close()

	practiceSvc := practice.NewService(ctx, r.cfg.Practice, busClient, converter, store, r.logger)
	if err := practiceSvc.Start(); err != nil {
		return fmt.Errorf("failed to start practice service: %w", err)
	}
	defer practiceSvc.Close()

	synth, err := buildSynthesizer(r.cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to build synthesizer: %w", err)
	}
	ttsSvc := tts.NewService(ctx, r.cfg.TTS, busClient, synth, r.logger)
	if err := ttsSvc.Start(); err != nil {
		return fmt.Errorf("failed to start tts service: %w", err)
	}
	defer ttsSvc.Close()

	healthy := func() bool {
		return busClient.Healthy() && scoringSvc.Healthy() && practiceSvc.Healthy() && ttsSvc.Healthy()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		r.handleReady(w, req, healthy)
	})
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("recognizer_mode", r.cfg.Recognizer.Mode))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildRecognizer(cfg config.Config) (recognizer.Recognizer, error) {
	opts := recognizer.Options{
		BeamWidth:           cfg.Decoder.BeamWidth,
		ConfidenceThreshold: cfg.Decoder.ConfidenceThreshold,
		PhonemeBoost:        cfg.Decoder.PhonemeBoost,
		Temperature:         cfg.Decoder.Temperature,
		MinDurationMS:       cfg.Decoder.MinDurationMS,
		MaxFrames:           cfg.Decoder.MaxFrames,
	}
	switch cfg.Recognizer.Mode {
	case "beam":
		model, err := acoustic.NewExecModel(cfg.Recognizer.Command, cfg.Recognizer.ModelPath)
		if err != nil {
			return nil, err
		}
		return recognizer.NewBeamRecognizer(model, opts), nil
	case "greedy":
		model, err := acoustic.NewExecModel(cfg.Recognizer.Command, cfg.Recognizer.ModelPath)
		if err != nil {
			return nil, err
		}
		return recognizer.NewGreedyRecognizer(model, opts), nil
	case "exec":
		return recognizer.NewExecRecognizer(cfg.Recognizer.Command, cfg.Recognizer.ModelPath)
	case "mock":
		return recognizer.NewMockRecognizer(nil), nil
	default:
		return nil, fmt.Errorf("unknown recognizer mode %q", cfg.Recognizer.Mode)
	}
}

func buildConverter(cfg config.G2PConfig) (g2p.Converter, error) {
	switch cfg.Mode {
	case "exec":
		return g2p.NewExecConverter(cfg.Command)
	case "static":
		return g2p.NewStaticConverter(nil), nil
	default:
		return nil, fmt.Errorf("unknown g2p mode %q", cfg.Mode)
	}
}

func buildSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	if !cfg.Enabled || cfg.Mode == "mock" {
		return tts.NewMockSynth(cfg.SampleRate, cfg.Channels), nil
	}
	return tts.NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request, healthy func() bool) {
	if r.ready.Load() && healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
