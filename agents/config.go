package agents

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const configDirName = "reliquary_cfg"

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// DefaultConfigPath returns reliquary_cfg/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// Settings is the process configuration, constructed once at startup and
// injected into every agent constructor. There is deliberately no package
// level instance: anything that needs a knob receives the struct.
type Settings struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	OllamaEndpoint string  `yaml:"ollama_endpoint"`
	OpenAIAPIKey   string  `yaml:"openai_api_key"`
	MaxIterations  int     `yaml:"max_iterations"`
	Temperature    float64 `yaml:"temperature"`

	MinSizeBytes int64 `yaml:"min_size_bytes"`
	MinAgeDays   int   `yaml:"min_age_days"`

	EnableReflection bool   `yaml:"enable_reflection"`
	EnableMemory     bool   `yaml:"enable_memory"`
	MemoryDBPath     string `yaml:"memory_db_path"`
	DataDir          string `yaml:"data_dir"`

	Logging LoggingSettings `yaml:"logging"`
}

// LoggingSettings describes log output.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultSettings returns the baseline configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		OllamaEndpoint:   "http://localhost:11434",
		MaxIterations:    10,
		Temperature:      0.3,
		MinSizeBytes:     1 << 30,
		MinAgeDays:       90,
		EnableReflection: true,
		EnableMemory:     true,
		MemoryDBPath:     "memory.db",
		DataDir:          "data",
		Logging:          LoggingSettings{Level: "info", Pretty: true},
	}
}

// LoadSettings reads the yaml config (defaults when missing) and applies
// environment overrides on top.
func LoadSettings(path string) (*Settings, error) {
	cfg := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// SaveSettings writes the config to disk.
func SaveSettings(path string, cfg *Settings) error {
	if cfg == nil {
		return errors.New("settings missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnv lets the environment override file values, the surface operators
// actually use in deployment.
func (c *Settings) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("RELIQUARY_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("RELIQUARY_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("RELIQUARY_OLLAMA_ENDPOINT"); v != "" {
		c.OllamaEndpoint = v
	}
	if v := os.Getenv("RELIQUARY_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxIterations = n
		}
	}
	if v := os.Getenv("RELIQUARY_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
	if v := os.Getenv("RELIQUARY_MIN_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			c.MinSizeBytes = n
		}
	}
	if v := os.Getenv("RELIQUARY_MIN_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MinAgeDays = n
		}
	}
	if v := os.Getenv("RELIQUARY_MEMORY_DB"); v != "" {
		c.MemoryDBPath = v
	}
	if v := os.Getenv("RELIQUARY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
