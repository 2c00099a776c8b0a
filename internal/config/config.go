package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName  string             `yaml:"runtime_name"`
	Environment  string             `yaml:"environment"`
	HTTP         HTTPConfig         `yaml:"http"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Bus          BusConfig          `yaml:"bus"`
	Node         NodeConfig         `yaml:"node"`
	SessionStore SessionStoreConfig `yaml:"session_store"`
	Recognizer   RecognizerConfig   `yaml:"recognizer"`
	Decoder      DecoderConfig      `yaml:"decoder"`
	G2P          G2PConfig          `yaml:"g2p"`
	TTS          TTSConfig          `yaml:"tts"`
	Scoring      ScoringConfig      `yaml:"scoring"`
	Practice     PracticeConfig     `yaml:"practice"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type NodeConfig struct {
	ID                string           `yaml:"id"`
	Role              string           `yaml:"role"`
	HeartbeatInterval int              `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int              `yaml:"heartbeat_timeout_ms"`
	Capabilities      []NodeCapability `yaml:"capabilities"`
}

type NodeCapability struct {
	Name       string            `yaml:"name"`
	Tier       string            `yaml:"tier"`
	Attributes map[string]string `yaml:"attributes"`
}

type SessionStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// RecognizerConfig selects the phoneme recognition strategy and the
// audio format the scoring service expects from clients.
type RecognizerConfig struct {
	Mode       string `yaml:"mode"` // beam, greedy, exec, mock
	Command    string `yaml:"command"`
	ModelPath  string `yaml:"model_path"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

// DecoderConfig carries beam search and probability refinement parameters.
type DecoderConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	PhonemeBoost        float64 `yaml:"phoneme_boost"`
	Temperature         float64 `yaml:"temperature"`
	BeamWidth           int     `yaml:"beam_width"`
	MinDurationMS       int     `yaml:"min_duration_ms"`
	MaxFrames           int     `yaml:"max_frames"`
	BiasExpected        bool    `yaml:"bias_expected"`
}

type G2PConfig struct {
	Mode    string `yaml:"mode"` // static, exec
	Command string `yaml:"command"`
}

type TTSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Mode            string `yaml:"mode"`
	Command         string `yaml:"command"`
	Voice           string `yaml:"voice"`
	Rate            string `yaml:"rate"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkDurationMS int    `yaml:"chunk_duration_ms"`
}

type ScoringConfig struct {
	Enabled bool `yaml:"enabled"`
	// DecodeTimeoutMS bounds one attempt's recognize and score run.
	DecodeTimeoutMS int `yaml:"decode_timeout_ms"`
}

type PracticeConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DefaultVoice string `yaml:"default_voice"`
}

func Default() Config {
	return Config{
		RuntimeName: "phona-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Node: NodeConfig{
			ID:                "phona-node-1",
			Role:              "runtime",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
			Capabilities: []NodeCapability{
				{Name: "recognizer.phoneme", Tier: "balanced"},
				{Name: "scorer.alignment", Tier: "balanced"},
			},
		},
		SessionStore: SessionStoreConfig{
			Path:          "./data/phona-sessions.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Recognizer: RecognizerConfig{
			Mode:       "beam",
			Command:    "phona-acoustic",
			SampleRate: 16000,
			Channels:   1,
		},
		Decoder: DecoderConfig{
			ConfidenceThreshold: 0.4,
			PhonemeBoost:        1.0,
			Temperature:         1.0,
			BeamWidth:           10,
			MinDurationMS:       20,
			BiasExpected:        true,
		},
		G2P: G2PConfig{
			Mode: "static",
		},
		TTS: TTSConfig{
			Enabled:         false,
			Mode:            "mock",
			Voice:           "en-US",
			Rate:            "-25%",
			SampleRate:      22050,
			Channels:        1,
			ChunkDurationMS: 400,
		},
		Scoring: ScoringConfig{
			Enabled:         true,
			DecodeTimeoutMS: 45000,
		},
		Practice: PracticeConfig{
			Enabled:      true,
			DefaultVoice: "en-US",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PHONA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PHONA_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PHONA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PHONA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PHONA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PHONA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PHONA_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "PHONA_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "PHONA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PHONA_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PHONA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PHONA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PHONA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PHONA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PHONA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PHONA_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Node.ID, "PHONA_NODE_ID")
	overrideString(&cfg.Node.Role, "PHONA_NODE_ROLE")
	overrideInt(&cfg.Node.HeartbeatInterval, "PHONA_NODE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Node.HeartbeatTimeout, "PHONA_NODE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.SessionStore.Path, "PHONA_SESSION_STORE_PATH")
	overrideString(&cfg.SessionStore.RetentionMode, "PHONA_SESSION_STORE_RETENTION_MODE")
	overrideInt(&cfg.SessionStore.RetentionDays, "PHONA_SESSION_STORE_RETENTION_DAYS")
	overrideInt(&cfg.SessionStore.MaxSessions, "PHONA_SESSION_STORE_MAX_SESSIONS")
	overrideBool(&cfg.SessionStore.VacuumOnStart, "PHONA_SESSION_STORE_VACUUM_ON_START")
	overrideString(&cfg.Recognizer.Mode, "PHONA_RECOGNIZER_MODE")
	overrideString(&cfg.Recognizer.Command, "PHONA_RECOGNIZER_COMMAND")
	overrideString(&cfg.Recognizer.ModelPath, "PHONA_RECOGNIZER_MODEL_PATH")
	overrideInt(&cfg.Recognizer.SampleRate, "PHONA_RECOGNIZER_SAMPLE_RATE")
	overrideInt(&cfg.Recognizer.Channels, "PHONA_RECOGNIZER_CHANNELS")
	overrideFloat(&cfg.Decoder.ConfidenceThreshold, "PHONA_DECODER_CONFIDENCE_THRESHOLD")
	overrideFloat(&cfg.Decoder.PhonemeBoost, "PHONA_DECODER_PHONEME_BOOST")
	overrideFloat(&cfg.Decoder.Temperature, "PHONA_DECODER_TEMPERATURE")
	overrideInt(&cfg.Decoder.BeamWidth, "PHONA_DECODER_BEAM_WIDTH")
	overrideInt(&cfg.Decoder.MinDurationMS, "PHONA_DECODER_MIN_DURATION_MS")
	overrideInt(&cfg.Decoder.MaxFrames, "PHONA_DECODER_MAX_FRAMES")
	overrideBool(&cfg.Decoder.BiasExpected, "PHONA_DECODER_BIAS_EXPECTED")
	overrideString(&cfg.G2P.Mode, "PHONA_G2P_MODE")
	overrideString(&cfg.G2P.Command, "PHONA_G2P_COMMAND")
	overrideBool(&cfg.TTS.Enabled, "PHONA_TTS_ENABLED")
	overrideString(&cfg.TTS.Mode, "PHONA_TTS_MODE")
	overrideString(&cfg.TTS.Command, "PHONA_TTS_COMMAND")
	overrideString(&cfg.TTS.Voice, "PHONA_TTS_VOICE")
	overrideString(&cfg.TTS.Rate, "PHONA_TTS_RATE")
	overrideInt(&cfg.TTS.SampleRate, "PHONA_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "PHONA_TTS_CHANNELS")
	overrideInt(&cfg.TTS.ChunkDurationMS, "PHONA_TTS_CHUNK_DURATION_MS")
	overrideBool(&cfg.Scoring.Enabled, "PHONA_SCORING_ENABLED")
	overrideInt(&cfg.Scoring.DecodeTimeoutMS, "PHONA_SCORING_DECODE_TIMEOUT_MS")
	overrideBool(&cfg.Practice.Enabled, "PHONA_PRACTICE_ENABLED")
	overrideString(&cfg.Practice.DefaultVoice, "PHONA_PRACTICE_DEFAULT_VOICE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else if len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when embedded mode is disabled")
	}
	if cfg.Node.ID == "" {
		return errors.New("node.id must not be empty")
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return errors.New("node.heartbeat_interval_ms must be positive")
	}
	if cfg.Node.HeartbeatTimeout <= cfg.Node.HeartbeatInterval {
		return errors.New("node.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if len(cfg.Node.Capabilities) == 0 {
		return errors.New("node.capabilities must not be empty")
	}
	if cfg.SessionStore.Path == "" {
		return errors.New("session_store.path must not be empty")
	}
	switch cfg.SessionStore.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("session_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.SessionStore.RetentionDays < 0 {
		return errors.New("session_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	switch cfg.Recognizer.Mode {
	case "beam", "greedy", "exec", "mock":
	default:
		return errors.New("recognizer.mode must be one of beam|greedy|exec|mock")
	}
	// beam and greedy run an external acoustic model; exec runs a full
	// external recognizer. All three need a command line.
	if cfg.Recognizer.Mode != "mock" && cfg.Recognizer.Command == "" {
		return errors.New("recognizer.command must be set unless recognizer.mode is mock")
	}
	if cfg.Recognizer.SampleRate <= 0 {
		return errors.New("recognizer.sample_rate must be positive")
	}
	if cfg.Recognizer.Channels <= 0 {
		return errors.New("recognizer.channels must be positive")
	}
	if cfg.Decoder.ConfidenceThreshold < 0 || cfg.Decoder.ConfidenceThreshold > 1 {
		return errors.New("decoder.confidence_threshold must be between 0 and 1")
	}
	if cfg.Decoder.Temperature <= 0 {
		return errors.New("decoder.temperature must be positive")
	}
	if cfg.Decoder.BeamWidth < 1 {
		return errors.New("decoder.beam_width must be >= 1")
	}
	if cfg.Decoder.MinDurationMS < 0 {
		return errors.New("decoder.min_duration_ms must be >= 0")
	}
	if cfg.Decoder.MaxFrames < 0 {
		return errors.New("decoder.max_frames must be >= 0")
	}
	switch cfg.G2P.Mode {
	case "static", "exec":
	default:
		return errors.New("g2p.mode must be one of static|exec")
	}
	if cfg.G2P.Mode == "exec" && cfg.G2P.Command == "" {
		return errors.New("g2p.command must be set when g2p.mode is exec")
	}
	if cfg.TTS.Enabled {
		switch cfg.TTS.Mode {
		case "mock", "exec":
		default:
			return errors.New("tts.mode must be one of mock|exec")
		}
		if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when tts.mode is exec")
		}
		if cfg.TTS.SampleRate <= 0 {
			return errors.New("tts.sample_rate must be positive")
		}
		if cfg.TTS.Channels <= 0 {
			return errors.New("tts.channels must be positive")
		}
	}
	if cfg.Scoring.Enabled && cfg.Scoring.DecodeTimeoutMS <= 0 {
		return errors.New("scoring.decode_timeout_ms must be positive")
	}
	return nil
}
