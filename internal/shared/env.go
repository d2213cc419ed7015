package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override values from config.toml.
const (
	EnvBaseURL     = "MEDIACTL_API_BASE_URL"
	EnvToken       = "MEDIACTL_API_TOKEN"
	EnvChannelID   = "MEDIACTL_CHANNEL_ID"
	EnvDatabase    = "MEDIACTL_DATABASE_PATH"
	EnvMetricsPort = "MEDIACTL_METRICS_PORT"
)

// LoadEnv reads .env style files into the process environment.
//
// With no paths ".env" is used. A missing file is not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// GetEnv returns the value of the environment variable named by key, or fallback if it is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// ApplyEnv overlays MEDIACTL_* environment variables onto c.
func ApplyEnv(c *Config) {
	c.API.BaseURL = GetEnv(EnvBaseURL, c.API.BaseURL)
	c.API.Token = GetEnv(EnvToken, c.API.Token)
	c.Upload.ChannelID = GetEnv(EnvChannelID, c.Upload.ChannelID)
	c.Database.Path = GetEnv(EnvDatabase, c.Database.Path)
	c.Server.Port = GetEnvInt(EnvMetricsPort, c.Server.Port)
}
