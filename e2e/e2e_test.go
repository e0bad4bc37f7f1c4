//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drive-explorer/testutil"
)

var (
	binaryPath string
	baseURL    string
	serverEnv  []string
)

func TestMain(m *testing.M) {
	os.Exit(runMain(m))
}

// runMain builds the binary, starts "serve --mock" in an isolated home and
// stops it with SIGTERM once the tests finish.
func runMain(m *testing.M) int {
	tmpDir, err := os.MkdirTemp("", "drive-explorer-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "drive-explorer")

	build := exec.Command("go", "build", "-o", binaryPath, ".")
	build.Dir = findModuleRoot()
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr

	if err := build.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		return 1
	}

	addr, err := testutil.FreeAddr()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	baseURL = "http://" + addr

	isolated, err := testutil.IsolatedEnv(tmpDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	serverEnv = append(os.Environ(), isolated...)
	serverEnv = append(serverEnv,
		"DRIVE_EXPLORER_CONFIG=",
		"GOOGLE_CLIENT_ID=",
		"GOOGLE_CLIENT_SECRET=",
		"GOOGLE_REDIRECT_URI="+baseURL+"/api/auth/callback/google",
	)

	var serverLog bytes.Buffer

	server := exec.Command(binaryPath, "serve", "--mock", "--listen", addr)
	server.Env = serverEnv
	server.Stdout = &serverLog
	server.Stderr = &serverLog

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "starting server: %v\n", err)
		return 1
	}

	if err := testutil.WaitForHTTP(context.Background(), baseURL+"/api/status", 10*time.Second); err != nil {
		server.Process.Kill()
		fmt.Fprintf(os.Stderr, "%v\nserver output:\n%s\n", err, serverLog.String())

		return 1
	}

	code := m.Run()

	// Graceful shutdown on the first signal must exit cleanly.
	if err := server.Process.Signal(syscall.SIGTERM); err != nil {
		fmt.Fprintf(os.Stderr, "signaling server: %v\n", err)
		return 1
	}

	if err := server.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with %v\nserver output:\n%s\n", err, serverLog.String())
		return 1
	}

	return code
}

// findModuleRoot walks up from the current dir to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ".."
		}

		dir = parent
	}
}

// newBrowser returns a client with a cookie jar that follows redirects only
// within the server, so the final hop to the frontend is not fetched.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	server, err := url.Parse(baseURL)
	require.NoError(t, err)

	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, _ []*http.Request) error {
			if req.URL.Host != server.Host {
				return http.ErrUseLastResponse
			}

			return nil
		},
	}
}

func login(t *testing.T, c *http.Client) {
	t.Helper()

	resp, err := c.Get(baseURL + "/api/auth/login/google")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func do(t *testing.T, c *http.Client, method, path string, body io.Reader, contentType string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, baseURL+path, body)
	require.NoError(t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func form(values url.Values) (io.Reader, string) {
	return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded"
}

func upload(t *testing.T, folderID, name string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	require.NoError(t, w.WriteField("folder_id", folderID))

	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)

	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

type item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     string `json:"size"`
}

type listing struct {
	Items         []item `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

func names(l listing) []string {
	out := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		out = append(out, it.Name)
	}

	return out
}

func TestE2E_RoundTrip(t *testing.T) {
	c := newBrowser(t)

	t.Run("unauthenticated", func(t *testing.T) {
		resp, body := do(t, c, http.MethodGet, "/api/drive/files", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t, `{"detail":"Not authenticated"}`, string(body))
	})

	login(t, c)

	t.Run("me", func(t *testing.T) {
		resp, body := do(t, c, http.MethodGet, "/api/me", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `"authenticated":true`)
		assert.Contains(t, string(body), `"mode":"mock"`)
	})

	t.Run("list_root", func(t *testing.T) {
		resp, body := do(t, c, http.MethodGet, "/api/drive/files", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var l listing
		require.NoError(t, json.Unmarshal(body, &l))
		assert.Contains(t, names(l), "Simulated Folder")
	})

	folderName := fmt.Sprintf("e2e-%d", time.Now().UnixNano())

	var folder item

	t.Run("create_folder", func(t *testing.T) {
		body, ct := form(url.Values{"folder_name": {folderName}})
		resp, data := do(t, c, http.MethodPost, "/api/drive/folders", body, ct)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
		require.NoError(t, json.Unmarshal(data, &folder))
		assert.Equal(t, folderName, folder.Name)
	})

	content := []byte("Hello from the drive-explorer E2E test!\n")

	var file item

	t.Run("upload", func(t *testing.T) {
		body, ct := upload(t, folder.ID, "日本語 test.txt", content)
		resp, data := do(t, c, http.MethodPost, "/api/drive/files/upload", body, ct)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
		require.NoError(t, json.Unmarshal(data, &file))
		assert.Equal(t, "日本語 test.txt", file.Name)
		assert.Equal(t, fmt.Sprint(len(content)), file.Size)
	})

	t.Run("list_folder", func(t *testing.T) {
		resp, body := do(t, c, http.MethodGet, "/api/drive/files?folder_id="+url.QueryEscape(folder.ID), nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var l listing
		require.NoError(t, json.Unmarshal(body, &l))
		assert.Equal(t, []string{"日本語 test.txt"}, names(l))
	})

	t.Run("download", func(t *testing.T) {
		resp, body := do(t, c, http.MethodGet, "/api/drive/files/"+file.ID+"/download", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, content, body)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	})

	t.Run("rename", func(t *testing.T) {
		body, ct := form(url.Values{"new_name": {"renamed.txt"}})
		resp, data := do(t, c, http.MethodPatch, "/api/drive/files/"+file.ID+"/rename", body, ct)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
		assert.Contains(t, string(data), `"name":"renamed.txt"`)
	})

	t.Run("delete_folder", func(t *testing.T) {
		resp, _ := do(t, c, http.MethodDelete, "/api/drive/files/"+folder.ID, nil, "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = do(t, c, http.MethodGet, "/api/drive/files/"+file.ID+"/download", nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("logout", func(t *testing.T) {
		resp, _ := do(t, c, http.MethodPost, "/api/auth/logout", nil, "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = do(t, c, http.MethodGet, "/api/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestE2E_SessionsAreIndependent(t *testing.T) {
	alice, bob := newBrowser(t), newBrowser(t)
	login(t, alice)
	login(t, bob)

	resp, _ := do(t, alice, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, bob, http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_StatusCommand(t *testing.T) {
	cmd := exec.Command(binaryPath, "status", "--json", "--url", baseURL)
	cmd.Env = serverEnv

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	require.NoError(t, cmd.Run(), stderr.String())

	var st map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &st))
	assert.Equal(t, "ok", st["status"])
	assert.Equal(t, "mock", st["mode"])
}
