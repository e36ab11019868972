package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService is just enough of the remote API for the CLI paths under test.
type fakeService struct {
	mu       sync.Mutex
	favorite bool
	created  int
	queries  []string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/api/auth/register/" {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1, "username": "ada", "email": "ada@example.com"}`))
		return
	}
	if r.URL.Path == "/api/auth/token/" {
		_, _ = w.Write([]byte(`{"access": "good", "refresh": "r1"}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer good" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	article := map[string]any{
		"id": 4, "url": "https://example.com/post", "title": "Post", "status": "unread",
		"is_favorite": f.favorite, "saved_at": "2024-05-01T00:00:00Z",
	}
	switch {
	case r.URL.Path == "/api/auth/user/":
		_, _ = w.Write([]byte(`{"id": 1, "username": "ada", "email": "ada@example.com"}`))
	case r.URL.Path == "/api/articles/" && r.Method == http.MethodPost:
		f.created++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(article)
	case r.URL.Path == "/api/articles/" && r.Method == http.MethodGet:
		f.queries = append(f.queries, r.URL.RawQuery)
		_ = json.NewEncoder(w).Encode([]any{article})
	case r.URL.Path == "/api/articles/4/" && r.Method == http.MethodPatch:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if fav, ok := body["is_favorite"].(bool); ok {
			f.favorite = fav
			article["is_favorite"] = fav
		}
		_ = json.NewEncoder(w).Encode(article)
	case r.URL.Path == "/api/articles/4/":
		_ = json.NewEncoder(w).Encode(article)
	case r.URL.Path == "/api/tags/":
		_, _ = w.Write([]byte(`[{"id": 1, "name": "go"}]`))
	default:
		http.NotFound(w, r)
	}
}

func setupCLITest(t *testing.T) *fakeService {
	t.Helper()
	svc := &fakeService{}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "reread.yaml")
	body := "api:\n  base_url: " + srv.URL + "/api/\nstorage:\n  dir: " + filepath.Join(dir, "data") + "\noutput:\n  colors: false\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	cfgFile = cfgPath
	t.Cleanup(func() { cfgFile = "" })
	return svc
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append(args, "--config", cfgFile))

	passwordFlag = ""
	listStatus, listTag, listFavorite, listWithTags = "", 0, false, false
	for _, f := range []string{"status", "tag", "favorite", "with-tags"} {
		if flag := listCmd.Flags().Lookup(f); flag != nil {
			flag.Changed = false
		}
	}

	err := rootCmd.Execute()
	require.NoError(t, teardown())
	return buf.String(), err
}

func TestCLI_LoginListFavorite(t *testing.T) {
	svc := setupCLITest(t)

	out, err := run(t, "login", "ada", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada")

	out, err = run(t, "list", "--favorite=false", "--status", "unread")
	require.NoError(t, err)
	assert.Contains(t, out, "Post")
	require.NotEmpty(t, svc.queries)
	assert.Equal(t, "is_favorite=false&status=unread", svc.queries[len(svc.queries)-1])

	out, err = run(t, "fav", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Post *")
	assert.True(t, svc.favorite)
}

func TestCLI_LocalModeRefusesAdd(t *testing.T) {
	setupCLITest(t)

	_, err := run(t, "local", "on")
	require.NoError(t, err)

	out, err := run(t, "add", "https://example.com/new")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "not available in local mode")

	out, err = run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Local mode")
}

func TestCLI_RegisterLeavesLocalMode(t *testing.T) {
	svc := setupCLITest(t)

	_, err := run(t, "local", "on")
	require.NoError(t, err)

	out, err := run(t, "register", "ada", "ada@example.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada")

	out, err = run(t, "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "Local mode")

	out, err = run(t, "add", "https://example.com/new")
	require.NoError(t, err)
	assert.Contains(t, out, "Article added")
	assert.Equal(t, 1, svc.created)
}

func TestCLI_Prefs(t *testing.T) {
	setupCLITest(t)

	_, err := run(t, "prefs", "set", "show_url", "false")
	require.NoError(t, err)

	out, err := run(t, "prefs")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "show_url") && strings.Contains(out, "false"))

	_, err = run(t, "prefs", "set", "local_mode", "true")
	assert.Error(t, err)
}

func TestCLI_InvalidID(t *testing.T) {
	setupCLITest(t)
	_, err := run(t, "show", "abc")
	assert.EqualError(t, err, `invalid article id "abc"`)
}
