package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/services"
	"github.com/desertthunder/mediactl/internal/shared"
	tu "github.com/desertthunder/mediactl/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("keeps provided dependencies", func(t *testing.T) {
			opts := RunnerOpts{
				Config:     shared.DefaultConfig(),
				ConfigPath: "/etc/mediactl/config.toml",
				Logger:     shared.NewLogger(nil),
				Output:     &bytes.Buffer{},
				Client:     services.NewClient(services.ClientOpts{BaseURL: "http://api.test"}),
				API:        services.NewAPIService("http://api.test", nil),
				Metrics:    metrics.New(),
			}
			runner := NewRunner(opts)

			same := runner.config == opts.Config && runner.configPath == opts.ConfigPath &&
				runner.logger == opts.Logger && runner.output == opts.Output &&
				runner.client == opts.Client && runner.api == opts.API && runner.metrics == opts.Metrics
			if !same {
				t.Errorf("expected every option to be kept, got %+v", runner)
			}
		})

		t.Run("fills defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			switch {
			case runner.config == nil:
				t.Error("expected default config")
			case runner.logger == nil:
				t.Error("expected default logger")
			case runner.output != os.Stdout:
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("builds the client from config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.BaseURL = "http://media.test/"

			runner := NewRunner(RunnerOpts{Config: config})
			if runner.client == nil || runner.api == nil {
				t.Fatal("expected client and api to be built")
			}
			if got := runner.client.BaseURL(); got != "http://media.test" {
				t.Errorf("expected base URL from config, got %s", got)
			}
		})
	})

	t.Run("output", func(t *testing.T) {
		tests := []struct {
			name  string
			write func(r *Runner) error
			want  string
		}{
			{"pretty json", func(r *Runner) error { return r.writeJSON(map[string]int{"n": 1}, true) }, "{\n  \"n\": 1\n}\n"},
			{"compact json", func(r *Runner) error { return r.writeJSON(map[string]int{"n": 1}, false) }, "{\"n\":1}\n"},
			{"plain", func(r *Runner) error { return r.writePlain("hello %s", "world") }, "hello world"},
			{"header", func(r *Runner) error { r.writePlainHeader("Media"); return nil }, "Media\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var out bytes.Buffer
				if err := tt.write(NewRunner(RunnerOpts{Output: &out})); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if !strings.Contains(out.String(), tt.want) {
					t.Errorf("expected output containing %q, got %q", tt.want, out.String())
				}
			})
		}

		t.Run("marshal failure", func(t *testing.T) {
			err := NewRunner(RunnerOpts{Output: &bytes.Buffer{}}).writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			for _, err := range []error{runner.writeJSON(1, false), runner.writePlain("x")} {
				if err == nil || !strings.Contains(err.Error(), "failed to write output") {
					t.Errorf("expected write error, got %v", err)
				}
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "media", "playlist", "channel", "upload", "uploads", "api"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("Before", func(t *testing.T) {
		run := func(t *testing.T, runner *Runner, args ...string) error {
			t.Helper()
			app := newApp(runner)
			app.Commands = []*cli.Command{{Name: "noop", Action: func(context.Context, *cli.Command) error { return nil }}}
			return app.Run(context.Background(), append(append([]string{"mediactl"}, args...), "noop"))
		}

		t.Run("loads config file and applies flag overrides", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			tu.MustWriteFile(t, path, []byte("[api]\nbase_url = \"http://from-file.test\"\n\n[upload]\nchannel_id = \"c9\"\n"))

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.DiscardLogger()})
			if err := run(t, runner, "--config", path, "--token", "secret"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.client.BaseURL() != "http://from-file.test" {
				t.Errorf("expected base URL from file, got %s", runner.client.BaseURL())
			}
			if runner.config.API.Token != "secret" {
				t.Errorf("expected token from flag, got %q", runner.config.API.Token)
			}
			if runner.config.Upload.ChannelID != "c9" {
				t.Errorf("expected channel from file, got %q", runner.config.Upload.ChannelID)
			}
		})

		t.Run("environment overrides file", func(t *testing.T) {
			t.Setenv(shared.EnvBaseURL, "http://from-env.test")

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.DiscardLogger()})
			if err := run(t, runner, "--config", filepath.Join(t.TempDir(), "missing.toml")); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.client.BaseURL() != "http://from-env.test" {
				t.Errorf("expected base URL from env, got %s", runner.client.BaseURL())
			}
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			tu.MustWriteFile(t, path, []byte("[upload]\ntransfer_method = \"PATCH\"\n"))

			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.DiscardLogger()})
			err := run(t, runner, "--config", path)
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("serves metrics until After", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.DiscardLogger()})
			app := newApp(runner)

			var addr string
			app.Commands = []*cli.Command{{
				Name: "probe",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					addr = runner.server.Addr()
					resp, err := http.Get("http://" + addr + "/metrics")
					if err != nil {
						return err
					}
					resp.Body.Close()
					if resp.StatusCode != http.StatusOK {
						t.Errorf("expected 200 from /metrics, got %d", resp.StatusCode)
					}
					return nil
				},
			}}

			args := []string{"mediactl", "--config", filepath.Join(t.TempDir(), "none.toml"), "--metrics-addr", "127.0.0.1:0", "probe"}
			if err := app.Run(context.Background(), args); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.server != nil {
				t.Error("expected server to be shut down")
			}
			if _, err := http.Get("http://" + addr + "/metrics"); err == nil {
				t.Error("expected metrics server to be closed")
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file uses defaults", func(t *testing.T) {
			config, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Reorder.DebounceMS != 800 {
				t.Errorf("expected default debounce, got %d", config.Reorder.DebounceMS)
			}
		})

		t.Run("malformed file is an error", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			tu.MustWriteFile(t, path, []byte("[api\n"))

			if _, err := loadConfig(path); err == nil {
				t.Error("expected parse error")
			}
		})
	})
}
