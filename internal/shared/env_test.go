package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnv(t *testing.T) {
	t.Run("LoadEnv", func(t *testing.T) {
		t.Run("missing file is ignored", func(t *testing.T) {
			if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("loads variables", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(path, []byte("MEDIACTL_TEST_LOADED=yes\n"), 0644); err != nil {
				t.Fatalf("failed to write env file: %v", err)
			}
			t.Cleanup(func() { os.Unsetenv("MEDIACTL_TEST_LOADED") })

			if err := LoadEnv(path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := os.Getenv("MEDIACTL_TEST_LOADED"); got != "yes" {
				t.Errorf("expected yes, got %q", got)
			}
		})
	})

	t.Run("GetEnvInt", func(t *testing.T) {
		t.Setenv("MEDIACTL_TEST_INT", "12")
		if got := GetEnvInt("MEDIACTL_TEST_INT", 1); got != 12 {
			t.Errorf("expected 12, got %d", got)
		}

		t.Setenv("MEDIACTL_TEST_INT", "twelve")
		if got := GetEnvInt("MEDIACTL_TEST_INT", 1); got != 1 {
			t.Errorf("expected fallback 1, got %d", got)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvBaseURL, "https://override.example.com")
		t.Setenv(EnvToken, "tok")
		t.Setenv(EnvChannelID, "")

		config := DefaultConfig()
		config.Upload.ChannelID = "from-file"
		ApplyEnv(config)

		if config.API.BaseURL != "https://override.example.com" {
			t.Errorf("expected overridden base URL, got %s", config.API.BaseURL)
		}
		if config.API.Token != "tok" {
			t.Errorf("expected token tok, got %s", config.API.Token)
		}
		if config.Upload.ChannelID != "from-file" {
			t.Errorf("expected empty env var to keep file value, got %s", config.Upload.ChannelID)
		}
	})
}
