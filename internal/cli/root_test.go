package cli_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/cli"
	"github.com/nhle/taskboard/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig writes a config pointing at url with the cache and log
// file disabled.
func writeConfig(t *testing.T, url string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := model.DefaultAppConfig()
	cfg.API.BaseURL = url
	cfg.Cache.Enabled = false
	cfg.Log.Path = ""
	require.NoError(t, model.SaveConfig(path, cfg))
	return path
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "--config", path, "--api-url", "http://example.test:9000", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "http://example.test:9000")
	assert.Contains(t, out, "board.restore_status  TODO")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "http://localhost:8080")

	_, err := execute(t, "--config", path, "config", "init")
	require.Error(t, err)

	_, err = execute(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)
}

func TestHistoryListAndRestore(t *testing.T) {
	t.Setenv("TASKBOARD_API_TOKEN", "test-token")

	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tasks/history":
			io.WriteString(w, `[
				{"id":"7","title":"file taxes","status":"DONE","priority":"HIGH","completedAt":"2026-01-02T10:00:00"},
				{"id":"8","title":"old note","status":"TODO","priority":"LOW"}
			]`)
		case r.Method == http.MethodPost && r.URL.Path == "/tasks/7/restore":
			io.WriteString(w, `{"id":"7","title":"file taxes","status":"DONE","priority":"HIGH"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/tasks/7":
			io.WriteString(w, `{"id":"7","title":"file taxes","status":"TODO","priority":"HIGH"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	path := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", path, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "file taxes")
	assert.Contains(t, out, "old note")
	assert.Less(t, bytes.Index([]byte(out), []byte("file taxes")), bytes.Index([]byte(out), []byte("old note")),
		"entries without a completion time sort last")

	out, err = execute(t, "--config", path, "history", "restore", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "restored 7 into TODO")
	assert.Contains(t, calls, "PUT /tasks/7")
}

func TestHistoryRestoreUnknownID(t *testing.T) {
	t.Setenv("TASKBOARD_API_TOKEN", "test-token")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tasks/history" {
			io.WriteString(w, `[]`)
			return
		}
		if r.URL.Path == "/tasks" {
			io.WriteString(w, `{"content":[],"totalPages":0,"totalElements":0,"size":100,"number":0}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	path := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", path, "history", "restore", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "Could not restore task")
}
