package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	BackendConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	IsDev() bool
	IsVerbose() bool
}

type CorsConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Backend
}

// New returns a Config backed by environment variables only.
func New() Config {
	return newMainConfig(&source{})
}

// Load reads an optional .env file and an optional file of KEY: value pairs,
// YAML or (for .json/.jsonc paths) JSON with comments. Environment variables
// always take precedence over the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	src := &source{file: map[string]string{}}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("[config Load] failed to read %s: %w", path, err)
		}
		file, err := parseFile(path, content)
		if err != nil {
			return nil, fmt.Errorf("[config Load] failed to parse %s: %w", path, err)
		}
		src.file = file
	}

	c := newMainConfig(src)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newMainConfig(src *source) mainConfig {
	env := EnvVars{src: src}
	return mainConfig{
		EnvVars:  env,
		Cors:     Cors{src: src},
		OAuth:    OAuth{src: src, env: env},
		Security: Security{src: src, env: env},
		Backend:  Backend{src: src},
	}
}

func (c mainConfig) Validate() error {
	if c.GetPort() == ":" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if !c.IsDev() && strings.TrimSpace(c.GetSessionSecret()) == "" {
		return fmt.Errorf("SESSION_SECRET is required outside DEV")
	}
	if c.GetRefreshAfter() <= 0 || c.GetMaxSessionAge() <= 0 {
		return fmt.Errorf("session durations must be positive")
	}
	if c.GetRefreshAfter() >= c.GetMaxSessionAge() {
		return fmt.Errorf("SESSION_REFRESH_AFTER must be shorter than SESSION_MAX_AGE")
	}
	if c.GetBackendBaseURL() == "" {
		return fmt.Errorf("BACKEND_BASE_URL cannot be empty")
	}
	return nil
}

type source struct {
	file map[string]string
}

func (s *source) get(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if s != nil {
		if value := strings.TrimSpace(s.file[key]); value != "" {
			return value
		}
	}
	return defaultValue
}

func parseFile(path string, content []byte) (map[string]string, error) {
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(content), &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, err
		}
	}

	file := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		file[key] = fmt.Sprint(value)
	}
	return file, nil
}
