package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CRYOPAY_"

// Config is the resolved configuration.
type Config struct {
	Log      LogConfig
	Server   ServerConfig
	Storage  StorageConfig
	Verifier VerifierConfig
}

type LogConfig struct {
	JSON    bool
	Debug   bool
	Service string
}

type ServerConfig struct {
	ListenAddr       string
	MetricsAddr      string
	EnablePprof      bool
	DrainDuration    time.Duration
	GracefulShutdown time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

type StorageConfig struct {
	// LedgerURIs lists ledger stores; the first is the primary.
	LedgerURIs    []string
	KeysURI       string
	ArchiveURI    string
	AllowNewChain bool
}

type VerifierConfig struct {
	ChallengeTTL time.Duration
	// RateLimit is requests per second per identity; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Service: "cryopay",
		},
		Server: ServerConfig{
			ListenAddr:       "127.0.0.1:8080",
			MetricsAddr:      "127.0.0.1:8090",
			DrainDuration:    45 * time.Second,
			GracefulShutdown: 30 * time.Second,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     30 * time.Second,
		},
		Storage: StorageConfig{
			LedgerURIs: []string{"memory://ledger"},
			KeysURI:    "memory://ledger",
		},
		Verifier: VerifierConfig{
			ChallengeTTL: 5 * time.Minute,
			RateLimit:    2,
			RateBurst:    5,
		},
	}
}

// File mirrors the YAML layout. Pointers distinguish unset from zero.
type File struct {
	Log struct {
		JSON    *bool  `yaml:"json"`
		Debug   *bool  `yaml:"debug"`
		Service string `yaml:"service"`
	} `yaml:"log"`
	Server struct {
		ListenAddr       string        `yaml:"listenAddr"`
		MetricsAddr      *string       `yaml:"metricsAddr"`
		Pprof            *bool         `yaml:"pprof"`
		DrainDuration    time.Duration `yaml:"drainDuration"`
		GracefulShutdown time.Duration `yaml:"gracefulShutdown"`
		ReadTimeout      time.Duration `yaml:"readTimeout"`
		WriteTimeout     time.Duration `yaml:"writeTimeout"`
	} `yaml:"server"`
	Storage struct {
		Ledger        []string `yaml:"ledger"`
		Keys          string   `yaml:"keys"`
		Archive       string   `yaml:"archive"`
		AllowNewChain *bool    `yaml:"allowNewChain"`
	} `yaml:"storage"`
	Verifier struct {
		ChallengeTTL time.Duration `yaml:"challengeTTL"`
		RateLimit    *float64      `yaml:"rateLimit"`
		RateBurst    int           `yaml:"rateBurst"`
	} `yaml:"verifier"`
}

// Load resolves the configuration. An empty path skips the file; a path that
// cannot be read or parsed is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var parsed File
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		Merge(&cfg, parsed)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge copies every set field of src into dst.
func Merge(dst *Config, src File) {
	if src.Log.JSON != nil {
		dst.Log.JSON = *src.Log.JSON
	}
	if src.Log.Debug != nil {
		dst.Log.Debug = *src.Log.Debug
	}
	if src.Log.Service != "" {
		dst.Log.Service = src.Log.Service
	}

	if src.Server.ListenAddr != "" {
		dst.Server.ListenAddr = src.Server.ListenAddr
	}
	if src.Server.MetricsAddr != nil {
		dst.Server.MetricsAddr = *src.Server.MetricsAddr
	}
	if src.Server.Pprof != nil {
		dst.Server.EnablePprof = *src.Server.Pprof
	}
	if src.Server.DrainDuration != 0 {
		dst.Server.DrainDuration = src.Server.DrainDuration
	}
	if src.Server.GracefulShutdown != 0 {
		dst.Server.GracefulShutdown = src.Server.GracefulShutdown
	}
	if src.Server.ReadTimeout != 0 {
		dst.Server.ReadTimeout = src.Server.ReadTimeout
	}
	if src.Server.WriteTimeout != 0 {
		dst.Server.WriteTimeout = src.Server.WriteTimeout
	}

	if src.Storage.Ledger != nil {
		dst.Storage.LedgerURIs = src.Storage.Ledger
	}
	if src.Storage.Keys != "" {
		dst.Storage.KeysURI = src.Storage.Keys
	}
	if src.Storage.Archive != "" {
		dst.Storage.ArchiveURI = src.Storage.Archive
	}
	if src.Storage.AllowNewChain != nil {
		dst.Storage.AllowNewChain = *src.Storage.AllowNewChain
	}

	if src.Verifier.ChallengeTTL != 0 {
		dst.Verifier.ChallengeTTL = src.Verifier.ChallengeTTL
	}
	if src.Verifier.RateLimit != nil {
		dst.Verifier.RateLimit = *src.Verifier.RateLimit
	}
	if src.Verifier.RateBurst != 0 {
		dst.Verifier.RateBurst = src.Verifier.RateBurst
	}
}

// ApplyEnvOverrides reads CRYOPAY_* variables. Malformed values are errors.
func ApplyEnvOverrides(cfg *Config) error {
	if v, ok := lookupEnv("LISTEN_ADDR"); ok {
		cfg.Server.ListenAddr = v
	}
	if v, ok := lookupEnv("METRICS_ADDR"); ok {
		cfg.Server.MetricsAddr = v
	}
	if v, ok := lookupEnv("LEDGER_URIS"); ok {
		var uris []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				uris = append(uris, u)
			}
		}
		cfg.Storage.LedgerURIs = uris
	}
	if v, ok := lookupEnv("KEYS_URI"); ok {
		cfg.Storage.KeysURI = v
	}
	if v, ok := lookupEnv("ARCHIVE_URI"); ok {
		cfg.Storage.ArchiveURI = v
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"LOG_JSON", &cfg.Log.JSON},
		{"LOG_DEBUG", &cfg.Log.Debug},
		{"ALLOW_NEW_CHAIN", &cfg.Storage.AllowNewChain},
	}
	for _, b := range bools {
		v, ok := lookupEnv(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, b.name, err)
		}
		*b.dst = parsed
	}

	if v, ok := lookupEnv("CHALLENGE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCHALLENGE_TTL: %w", envPrefix, err)
		}
		cfg.Verifier.ChallengeTTL = d
	}
	if v, ok := lookupEnv("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sRATE_LIMIT: %w", envPrefix, err)
		}
		cfg.Verifier.RateLimit = f
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(envPrefix + name))
	return v, v != ""
}
