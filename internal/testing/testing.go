// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/mediactl/internal/shared"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// FailingBody is a response body whose reads fail.
type FailingBody struct{}

func (FailingBody) Read(p []byte) (int, error) { return 0, errors.New("read failed") }
func (FailingBody) Close() error               { return nil }

// MockRoundTripper records requests and answers each with the same response or error.
type MockRoundTripper struct {
	response *http.Response
	err      error
	Requests []*http.Request
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.response != nil && m.response.Request == nil {
		m.response.Request = req
	}
	return m.response, m.err
}

// MockClient returns an [http.Client] whose transport is a [MockRoundTripper].
func MockClient(r *http.Response, e error) (*http.Client, *MockRoundTripper) {
	rt := &MockRoundTripper{response: r, err: e}
	return &http.Client{Transport: rt}, rt
}

// JSONResponse builds a response with v encoded as its JSON body.
func JSONResponse(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to encode response body: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
}

// NewTestDB opens a migrated SQLite database under t.TempDir and closes it on cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "mediactl-test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
