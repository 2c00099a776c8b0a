package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Recognizer.Mode != "beam" {
		t.Fatalf("expected default recognizer mode beam, got %q", cfg.Recognizer.Mode)
	}
	if cfg.Decoder.BeamWidth != 10 {
		t.Fatalf("expected default beam width 10, got %d", cfg.Decoder.BeamWidth)
	}
	if cfg.Decoder.Temperature != 1.0 {
		t.Fatalf("expected default temperature 1.0, got %v", cfg.Decoder.Temperature)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PHONA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("PHONA_BUS_USERNAME", "alice")
	t.Setenv("PHONA_BUS_PASSWORD", "secret")
	t.Setenv("PHONA_BUS_TLS_INSECURE", "true")
	t.Setenv("PHONA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("PHONA_NODE_ID", "test-node")
	t.Setenv("PHONA_NODE_HEARTBEAT_INTERVAL_MS", "1500")
	t.Setenv("PHONA_NODE_HEARTBEAT_TIMEOUT_MS", "5000")
	t.Setenv("PHONA_SESSION_STORE_PATH", "./tmp.db")
	t.Setenv("PHONA_SESSION_STORE_RETENTION_MODE", "persistent")
	t.Setenv("PHONA_SESSION_STORE_RETENTION_DAYS", "7")
	t.Setenv("PHONA_RECOGNIZER_MODE", "greedy")
	t.Setenv("PHONA_DECODER_BEAM_WIDTH", "25")
	t.Setenv("PHONA_DECODER_CONFIDENCE_THRESHOLD", "0.55")
	t.Setenv("PHONA_DECODER_TEMPERATURE", "1.3")
	t.Setenv("PHONA_G2P_MODE", "static")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Node.ID != "test-node" {
		t.Fatalf("expected node id override")
	}
	if cfg.SessionStore.Path != "./tmp.db" {
		t.Fatalf("expected session store path override")
	}
	if cfg.SessionStore.RetentionMode != "persistent" {
		t.Fatalf("expected session store retention mode override")
	}
	if cfg.SessionStore.RetentionDays != 7 {
		t.Fatalf("expected session store retention days override")
	}
	if cfg.Recognizer.Mode != "greedy" {
		t.Fatalf("expected recognizer mode override, got %q", cfg.Recognizer.Mode)
	}
	if cfg.Decoder.BeamWidth != 25 {
		t.Fatalf("expected beam width override, got %d", cfg.Decoder.BeamWidth)
	}
	if cfg.Decoder.ConfidenceThreshold != 0.55 {
		t.Fatalf("expected confidence threshold override, got %v", cfg.Decoder.ConfidenceThreshold)
	}
	if cfg.Decoder.Temperature != 1.3 {
		t.Fatalf("expected temperature override, got %v", cfg.Decoder.Temperature)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phona.yaml")
	body := []byte(`
recognizer:
  mode: exec
  command: phoneme-model --quiet
  model_path: /models/ctc-en.onnx
decoder:
  beam_width: 4
  min_duration_ms: 40
g2p:
  mode: exec
  command: espeak-g2p
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Recognizer.Mode != "exec" || cfg.Recognizer.Command != "phoneme-model --quiet" {
		t.Fatalf("expected exec recognizer from file, got %+v", cfg.Recognizer)
	}
	if cfg.Recognizer.ModelPath != "/models/ctc-en.onnx" {
		t.Fatalf("expected model path from file, got %q", cfg.Recognizer.ModelPath)
	}
	if cfg.Decoder.BeamWidth != 4 || cfg.Decoder.MinDurationMS != 40 {
		t.Fatalf("expected decoder values from file, got %+v", cfg.Decoder)
	}
	// Untouched sections keep defaults.
	if cfg.Recognizer.SampleRate != 16000 {
		t.Fatalf("expected default sample rate to survive, got %d", cfg.Recognizer.SampleRate)
	}
}

func TestValidateRejectsBadDecoder(t *testing.T) {
	t.Setenv("PHONA_DECODER_TEMPERATURE", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-positive temperature")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("PHONA_RECOGNIZER_MODE", "quantum")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown recognizer mode")
	}
}
