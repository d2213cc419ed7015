package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/mediactl/internal/models"
	"github.com/desertthunder/mediactl/internal/shared"
	tu "github.com/desertthunder/mediactl/internal/testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientOpts{BaseURL: server.URL}), server
}

func TestClient(t *testing.T) {
	t.Run("NewClient", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			c := NewClient(ClientOpts{})
			if c.BaseURL() != "http://localhost:8000" {
				t.Errorf("expected default base URL, got %s", c.BaseURL())
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			c := NewClient(ClientOpts{BaseURL: "http://example.com/"})
			if c.BaseURL() != "http://example.com" {
				t.Errorf("expected trimmed base URL, got %s", c.BaseURL())
			}
		})

		t.Run("Bearer Token On API Requests Only", func(t *testing.T) {
			var (
				mu      sync.Mutex
				headers = map[string]string{}
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				headers[r.URL.Path] = r.Header.Get("Authorization")
				mu.Unlock()
				w.Write([]byte(`{"isAnonymous": false, "channels": []}`))
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL, Token: "secret"})
			if _, err := c.GetProfile(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			err := c.Transfer(context.Background(), TransferRequest{
				URL: server.URL + "/bucket", Body: strings.NewReader("x"), Name: "a", Size: 1, Method: TransferPUT,
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if headers["/api/profile"] != "Bearer secret" {
				t.Errorf("expected bearer token on API request, got %q", headers["/api/profile"])
			}
			if headers["/bucket"] != "" {
				t.Errorf("expected no token on transfer, got %q", headers["/bucket"])
			}
		})

		t.Run("Bearer Token Kept Off Foreign Manifest Hosts", func(t *testing.T) {
			var (
				mu      sync.Mutex
				headers = map[string]string{}
			)
			record := func(host string) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					mu.Lock()
					headers[host+r.URL.Path] = r.Header.Get("Authorization")
					mu.Unlock()
					w.Write([]byte(`{"playlist": []}`))
				}
			}
			api := httptest.NewServer(record("api"))
			defer api.Close()
			cdn := httptest.NewServer(record("cdn"))
			defer cdn.Close()

			c := NewClient(ClientOpts{BaseURL: api.URL, Token: "secret"})
			for _, u := range []string{cdn.URL + "/manifests/m1", api.URL + "/manifests/m2"} {
				if _, err := c.FetchManifest(context.Background(), u); err != nil {
					t.Fatalf("expected no error for %s, got %v", u, err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if got := headers["cdn/manifests/m1"]; got != "" {
				t.Errorf("expected no token on foreign manifest host, got %q", got)
			}
			if got := headers["api/manifests/m2"]; got != "Bearer secret" {
				t.Errorf("expected token on same-origin manifest, got %q", got)
			}
		})
	})

	t.Run("doRequest", func(t *testing.T) {
		t.Run("Transport Failure", func(t *testing.T) {
			client, _ := tu.MockClient(nil, errors.New("connection refused"))
			c := NewClient(ClientOpts{BaseURL: "http://example.com", HTTPClient: client})

			_, err := c.GetMedia(context.Background(), "1")
			if !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTransport, got %v", err)
			}
			if errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected a refused connection not to be a timeout, got %v", err)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
			_, err := c.GetMedia(context.Background(), "1")
			if !errors.Is(err, shared.ErrTimeout) || !errors.Is(err, shared.ErrTransport) {
				t.Errorf("expected ErrTimeout wrapped in ErrTransport, got %v", err)
			}
		})

		t.Run("Status Error", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"detail": "Not found."}`))
			})

			_, err := c.GetMedia(context.Background(), "missing")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if !apiErr.NotFound() {
				t.Errorf("expected 404, got %d", apiErr.StatusCode)
			}
			if !strings.Contains(apiErr.Error(), "Not found.") {
				t.Errorf("expected body in error message, got %s", apiErr.Error())
			}
		})

		t.Run("Empty Body", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			_, err := c.GetMedia(context.Background(), "1")
			if !errors.Is(err, shared.ErrEmptyResponse) {
				t.Errorf("expected ErrEmptyResponse, got %v", err)
			}
		})

		t.Run("Invalid JSON", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			})

			_, err := c.GetMedia(context.Background(), "1")
			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})
	})

	t.Run("Media", func(t *testing.T) {
		t.Run("ListMedia Encodes Query", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/media/" {
					t.Errorf("expected /api/media/, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("search") != "cats" || r.URL.Query().Get("playlist") != "p1" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				if r.URL.Query().Has("ordering") {
					t.Error("expected empty params to be omitted")
				}
				w.Write([]byte(`{"results": [{"id": "1", "title": "One"}]}`))
			})

			page, err := c.ListMedia(context.Background(), models.MediaQuery{Search: "cats", Playlist: "p1"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Results) != 1 || page.Results[0].Title != "One" {
				t.Errorf("unexpected results %+v", page.Results)
			}
		})

		t.Run("AllMedia Follows Next", func(t *testing.T) {
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Query().Get("page") {
				case "":
					json.NewEncoder(w).Encode(map[string]any{
						"results": []map[string]string{{"id": "1"}, {"id": "2"}},
						"next":    server.URL + "/api/media/?page=2",
					})
				case "2":
					json.NewEncoder(w).Encode(map[string]any{
						"results": []map[string]string{{"id": "3"}},
					})
				}
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			items, err := c.AllMedia(context.Background(), models.MediaQuery{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != 3 || items[2].ID != "3" {
				t.Errorf("expected 3 items in order, got %+v", items)
			}
		})

		t.Run("AllMedia Detects Loops", func(t *testing.T) {
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"results": []map[string]string{{"id": "1"}},
					"next":    server.URL + "/api/media/?page=2",
				})
			}))
			defer server.Close()

			c := NewClient(ClientOpts{BaseURL: server.URL})
			if _, err := c.AllMedia(context.Background(), models.MediaQuery{}); err == nil {
				t.Error("expected pagination loop error")
			}
		})

		t.Run("PatchMedia Carries ID", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch || r.URL.Path != "/api/media/42" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var body map[string]any
				json.NewDecoder(r.Body).Decode(&body)
				if body["id"] != "42" || body["title"] != "clip" {
					t.Errorf("unexpected body %v", body)
				}
				w.Write([]byte(`{"id": "42", "title": "clip"}`))
			})

			item, err := c.PatchMedia(context.Background(), "42", models.Fields{"title": "clip", "id": "other"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if item.ID != "42" {
				t.Errorf("expected item 42, got %s", item.ID)
			}
		})

		t.Run("CreateMedia Requires Channel", func(t *testing.T) {
			c := NewClient(ClientOpts{})
			if _, err := c.CreateMedia(context.Background(), models.MediaCreate{Title: "x"}); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("DeleteMedia Ignores Body", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete {
					t.Errorf("expected DELETE, got %s", r.Method)
				}
				w.WriteHeader(http.StatusNoContent)
			})

			if err := c.DeleteMedia(context.Background(), "1"); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("GetUploadEndpoint", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/media/42/upload" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"url": "", "expires_at": ""}`))
			})

			endpoint, err := c.GetUploadEndpoint(context.Background(), "42")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if endpoint.Ready() {
				t.Error("expected endpoint to not be ready")
			}
		})

		t.Run("GetAnalytics", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"views_per_day": [{"date": "2024-01-01", "views": 3}, {"date": "2024-01-02", "views": 4}]}`))
			})

			analytics, err := c.GetAnalytics(context.Background(), "42")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if analytics.TotalViews() != 7 {
				t.Errorf("expected 7 views, got %d", analytics.TotalViews())
			}
		})
	})

	t.Run("Playlists", func(t *testing.T) {
		t.Run("SetPlaylistOrder", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch || r.URL.Path != "/api/playlists/p1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				var body struct {
					ID       string   `json:"id"`
					MediaIDs []string `json:"mediaIds"`
				}
				json.NewDecoder(r.Body).Decode(&body)
				if body.ID != "p1" || strings.Join(body.MediaIDs, ",") != "c,a,b" {
					t.Errorf("unexpected body %+v", body)
				}
				w.Write([]byte(`{"id": "p1", "title": "mix"}`))
			})

			if err := c.SetPlaylistOrder(context.Background(), "p1", []string{"c", "a", "b"}); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("ListPlaylists", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"results": [{"id": "p1", "title": "mix", "mediaIds": ["a"]}]}`))
			})

			page, err := c.ListPlaylists(context.Background(), models.SearchQuery{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Results) != 1 || page.Results[0].MediaIDs[0] != "a" {
				t.Errorf("unexpected results %+v", page.Results)
			}
		})

		t.Run("GetChannel", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/channels/ch1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"id": "ch1", "title": "Main"}`))
			})

			channel, err := c.GetChannel(context.Background(), "ch1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if channel.Title != "Main" {
				t.Errorf("expected Main, got %s", channel.Title)
			}
		})
	})

	t.Run("Player", func(t *testing.T) {
		t.Run("PlayerConfiguration Path", func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlists/p1/jwp" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(`{"mediaItems": [{"id": "a", "title": "A", "playlistUrl": "/m/a.json"}]}`))
			})

			config, err := c.PlayerConfiguration(context.Background(), models.Collection{Kind: models.PlaylistCollection, ID: "p1"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(config.MediaItems) != 1 || config.MediaItems[0].PlaylistURL != "/m/a.json" {
				t.Errorf("unexpected config %+v", config)
			}
		})

		t.Run("PlayerConfiguration Rejects Unknown Kind", func(t *testing.T) {
			c := NewClient(ClientOpts{})
			_, err := c.PlayerConfiguration(context.Background(), models.Collection{Kind: models.CollectionKind(9), ID: "x"})
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("FetchManifest Null Body", func(t *testing.T) {
			c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("null"))
			})

			_, err := c.FetchManifest(context.Background(), server.URL+"/m/a.json")
			if !errors.Is(err, shared.ErrEmptyResponse) {
				t.Errorf("expected ErrEmptyResponse, got %v", err)
			}
		})

		t.Run("FetchManifest Absolute URL", func(t *testing.T) {
			c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"title": "A", "playlist": [{"file": "a-720.mp4"}, {"file": "a-1080.mp4"}]}`))
			})

			manifest, err := c.FetchManifest(context.Background(), server.URL+"/m/a.json")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(manifest.Playlist) != 2 || manifest.Playlist[1].String("file") != "a-1080.mp4" {
				t.Errorf("unexpected manifest %+v", manifest)
			}
		})
	})
}

func TestAPIError(t *testing.T) {
	t.Run("FieldErrors", func(t *testing.T) {
		err := &APIError{StatusCode: 400, Body: []byte(`{"title": ["This field may not be blank."], "language": "Invalid choice."}`)}

		fields := err.FieldErrors()
		if len(fields) != 2 {
			t.Fatalf("expected 2 fields, got %v", fields)
		}
		if fields["title"][0] != "This field may not be blank." {
			t.Errorf("unexpected title errors %v", fields["title"])
		}
		if fields["language"][0] != "Invalid choice." {
			t.Errorf("unexpected language errors %v", fields["language"])
		}
	})

	t.Run("FieldErrors Ignores Other Statuses", func(t *testing.T) {
		err := &APIError{StatusCode: 500, Body: []byte(`{"title": ["x"]}`)}
		if err.FieldErrors() != nil {
			t.Error("expected nil field errors for 500")
		}
	})

	t.Run("Long Body Truncated On Rune Boundary", func(t *testing.T) {
		err := &APIError{Method: "GET", URL: "/api/media/1", StatusCode: 500, Body: []byte("a" + strings.Repeat("é", 150))}

		msg := err.Error()
		if !utf8.ValidString(msg) {
			t.Errorf("expected valid UTF-8, got %q", msg)
		}
		if !strings.HasSuffix(msg, strings.Repeat("é", 99)+"...") {
			t.Errorf("expected detail cut after 99 runes, got %q", msg)
		}
	})

	t.Run("FieldErrors Non Object Body", func(t *testing.T) {
		err := &APIError{StatusCode: 400, Body: []byte(`["x"]`)}
		if err.FieldErrors() != nil {
			t.Error("expected nil field errors for array body")
		}
	})
}

func TestTransfer(t *testing.T) {
	t.Run("Multipart POST", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("expected file field, got %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if header.Filename != "clip.mp4" || string(data) != "0123456789" {
				t.Errorf("unexpected upload %s %q", header.Filename, data)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		var (
			mu   sync.Mutex
			last [2]int64
		)
		c := NewClient(ClientOpts{})
		err := c.Transfer(context.Background(), TransferRequest{
			URL:  server.URL,
			Body: strings.NewReader("0123456789"),
			Name: "clip.mp4",
			Size: 10,
			Progress: func(sent, total int64) {
				mu.Lock()
				last = [2]int64{sent, total}
				mu.Unlock()
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if last != [2]int64{10, 10} {
			t.Errorf("expected final progress 10/10, got %v", last)
		}
	})

	t.Run("Raw PUT", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			if r.ContentLength != 4 {
				t.Errorf("expected content length 4, got %d", r.ContentLength)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := NewClient(ClientOpts{})
		err := c.Transfer(context.Background(), TransferRequest{
			URL: server.URL, Body: strings.NewReader("data"), Name: "a", Size: 4, Method: TransferPUT,
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Unknown Size Reports Indeterminate Then Complete", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		var (
			mu     sync.Mutex
			totals []int64
		)
		c := NewClient(ClientOpts{})
		err := c.Transfer(context.Background(), TransferRequest{
			URL: server.URL, Body: strings.NewReader("abc"), Name: "a", Size: -5,
			Progress: func(sent, total int64) {
				mu.Lock()
				totals = append(totals, total)
				mu.Unlock()
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if totals[0] != -1 {
			t.Errorf("expected indeterminate total first, got %d", totals[0])
		}
		if totals[len(totals)-1] != 3 {
			t.Errorf("expected completion total 3, got %d", totals[len(totals)-1])
		}
	})

	t.Run("Non 2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		c := NewClient(ClientOpts{})
		err := c.Transfer(context.Background(), TransferRequest{URL: server.URL, Body: strings.NewReader("x"), Name: "a", Size: 1})

		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403 APIError, got %v", err)
		}
	})

	t.Run("Invalid Method", func(t *testing.T) {
		c := NewClient(ClientOpts{})
		err := c.Transfer(context.Background(), TransferRequest{URL: "http://x", Body: strings.NewReader("x"), Method: "PATCH"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
