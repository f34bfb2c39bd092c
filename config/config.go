package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Recorder backends for settled wins.
const (
	RecorderFile     = "file"
	RecorderPostgres = "postgres"
	RecorderREST     = "rest"
	RecorderNone     = "none"
)

type Config struct {
	Port          int
	DataDir       string
	TiersFile     string // YAML tier catalog; created from the built-in tiers when missing
	DefaultTier   string
	SpinDuration  time.Duration
	FullRotations int
	IdleTimeout   time.Duration // kiosks idle longer than this are closed
	Recorder      string
	DatabaseURL   string
	BackendURL    string // hosted REST backend for the rest recorder
	BackendAPIKey string
	Branch        string // kiosk CLI branch name
	SoundVolume   float64
	// Optional signed callback for every recorded win.
	OperatorEndpoint string
	OperatorSecret   string
}

func Load() *Config {
	port := 8081
	// Prefer PORT (Render, Fly.io, Railway, etc.) then RAFFLE_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("RAFFLE_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	dataDir := os.Getenv("RAFFLE_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	tiersFile := os.Getenv("RAFFLE_TIERS_FILE")
	if tiersFile == "" {
		tiersFile = filepath.Join(dataDir, "tiers.yaml")
	}
	defaultTier := os.Getenv("RAFFLE_DEFAULT_TIER")
	if defaultTier == "" {
		defaultTier = "tier1"
	}
	recorder := strings.ToLower(strings.TrimSpace(os.Getenv("RAFFLE_RECORDER")))
	if recorder == "" {
		recorder = RecorderFile
	}
	branch := os.Getenv("RAFFLE_BRANCH")
	if branch == "" {
		branch = "Main"
	}
	volume := 0.8
	if v := os.Getenv("RAFFLE_SOUND_VOLUME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			volume = f
		}
	}
	fullRotations := 20
	if v := os.Getenv("RAFFLE_FULL_ROTATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			fullRotations = n
		}
	}
	return &Config{
		Port:             port,
		DataDir:          dataDir,
		TiersFile:        tiersFile,
		DefaultTier:      defaultTier,
		SpinDuration:     duration("RAFFLE_SPIN_DURATION", 12*time.Second),
		FullRotations:    fullRotations,
		IdleTimeout:      duration("RAFFLE_IDLE_TIMEOUT", time.Hour),
		Recorder:         recorder,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		BackendURL:       os.Getenv("BACKEND_URL"),
		BackendAPIKey:    os.Getenv("BACKEND_API_KEY"),
		Branch:           branch,
		SoundVolume:      volume,
		OperatorEndpoint: os.Getenv("OPERATOR_ENDPOINT"),
		OperatorSecret:   os.Getenv("OPERATOR_SECRET"),
	}
}

// duration reads a Go duration ("12s") or a bare number of seconds.
func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.FullRotations < 1 {
		return fmt.Errorf("config: RAFFLE_FULL_ROTATIONS must be at least 1, got %d", c.FullRotations)
	}
	switch c.Recorder {
	case RecorderFile, RecorderNone:
	case RecorderPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: RAFFLE_RECORDER=postgres needs DATABASE_URL")
		}
	case RecorderREST:
		if c.BackendURL == "" || c.BackendAPIKey == "" {
			return fmt.Errorf("config: RAFFLE_RECORDER=rest needs BACKEND_URL and BACKEND_API_KEY")
		}
	default:
		return fmt.Errorf("config: unknown RAFFLE_RECORDER %q", c.Recorder)
	}
	return nil
}
