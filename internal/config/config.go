package config

type Config struct {
	Server     ServerConfig
	Whisper    WhisperConfig
	Classifier ClassifierConfig
	Storage    StorageConfig
	MCP        MCPConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port int
	// Token enables bearer auth on /api routes when non-empty.
	Token string
	// MaxConns bounds concurrently accepted connections; 0 means unlimited.
	MaxConns int
}

type WhisperConfig struct {
	Binary string
	Model  string
	Device string
	// Timeout bounds one transcription subprocess, as a duration string.
	Timeout string
}

type ClassifierConfig struct {
	Enabled bool
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type MCPConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     5000,
			MaxConns: 64,
		},
		Whisper: WhisperConfig{
			Binary:  "insanely-fast-whisper",
			Model:   "distil-whisper/large-v2",
			Device:  "cpu",
			Timeout: "2m",
		},
		Classifier: ClassifierConfig{
			Enabled: false,
			BaseURL: "http://localhost:8765",
			Model:   "keyword-base",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.voicelog.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/voicelog/config.json.
//
// Environment variables (VOICELOG_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
