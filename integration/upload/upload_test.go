//go:build integration

package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/wovault/pkg/api"
	"github.com/LeeDigitalWorks/wovault/pkg/wopan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "integration-token-0123456789"

// fakeRemote stands in for the Wopan upload endpoint. It validates every
// part form, decrypts the metadata envelope with the shared token key,
// buffers part bytes and issues a fid once the final part arrives.
type fakeRemote struct {
	mu       sync.Mutex
	cipher   *wopan.MetadataCipher
	parts    map[int][]byte
	envelope wopan.FileInfoEnvelope
	uniqueID string
	failures int
	fid      string
}

func newFakeRemote(t *testing.T, fid string) *fakeRemote {
	cipher, err := wopan.NewMetadataCipher(testToken)
	require.NoError(t, err)
	return &fakeRemote{cipher: cipher, parts: make(map[int][]byte), fid: fid}
}

func (f *fakeRemote) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.failures > 0 {
			f.failures--
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}

		require.NoError(t, r.ParseMultipartForm(64<<20))

		uniqueID := r.FormValue("uniqueId")
		if f.uniqueID == "" {
			f.uniqueID = uniqueID
		}
		assert.Equal(t, f.uniqueID, uniqueID, "all parts must share one session")
		assert.Equal(t, testToken, r.FormValue("accessToken"))
		assert.Equal(t, "wocloud", r.FormValue("channel"))
		assert.Equal(t, "undefined", r.FormValue("psToken"))

		plaintext, err := f.cipher.Decrypt(r.FormValue("fileInfo"))
		require.NoError(t, err, "fileInfo must decrypt with the token-derived key")
		require.NoError(t, json.Unmarshal(plaintext, &f.envelope))

		partIndex, err := strconv.Atoi(r.FormValue("partIndex"))
		require.NoError(t, err)
		totalPart, err := strconv.Atoi(r.FormValue("totalPart"))
		require.NoError(t, err)

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		f.parts[partIndex] = data

		w.Header().Set("Content-Type", "application/json")
		if partIndex == totalPart {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": "0000",
				"msg":  "success",
				"data": map[string]string{"fid": f.fid},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "0000",
			"msg":  "success",
		})
	}
}

// assembled concatenates the buffered parts in index order.
func (f *fakeRemote) assembled() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []byte
	for i := 1; i <= len(f.parts); i++ {
		out = append(out, f.parts[i]...)
	}
	return out
}

func (f *fakeRemote) lastEnvelope() wopan.FileInfoEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.envelope
}

// fastBackoff keeps retry pauses short so the suite stays quick.
type fastBackoff struct{}

func (fastBackoff) Next(int, wopan.FailureKind) time.Duration {
	return 5 * time.Millisecond
}

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// ==== Upload Pipeline Tests ====

func TestUploadPipeline(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t, "fid-integration")
	srv := httptest.NewServer(remote.handler(t))
	defer srv.Close()

	// 100 KiB over 16 KiB parts: seven parts, the last one short.
	data := make([]byte, 100<<10)
	for i := range data {
		data[i] = byte(i)
	}
	path := writeTestFile(t, "movie.mkv", data)

	up, err := wopan.NewUploader(wopan.Config{
		AccessToken:    testToken,
		UploadURL:      srv.URL,
		ChunkSize:      16 << 10,
		RequestTimeout: 10 * time.Second,
	})
	require.NoError(t, err)

	res, err := up.Upload(context.Background(), &wopan.UploadRequest{
		FilePath:    path,
		DirectoryID: "9",
	})
	require.NoError(t, err)

	assert.True(t, res.Confirmed)
	assert.Equal(t, "fid-integration", res.Fid)
	assert.Equal(t, 7, res.TotalParts)
	assert.Equal(t, 7, res.PartsSent)
	assert.Equal(t, data, remote.assembled(), "remote must reassemble the exact file bytes")

	envelope := remote.lastEnvelope()
	assert.Equal(t, "movie.mkv", envelope.FileName)
	assert.Equal(t, "9", envelope.DirectoryID)
	assert.Equal(t, int64(len(data)), envelope.FileSize)
	assert.Equal(t, wopan.FileTypeVideo, envelope.FileType)
}

func TestUploadPipeline_RecoversFromTransportFaults(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t, "fid-flaky")
	remote.failures = 2
	srv := httptest.NewServer(remote.handler(t))
	defer srv.Close()

	data := bytes.Repeat([]byte("wovault"), 6<<10)
	path := writeTestFile(t, "clip.mp4", data)

	up, err := wopan.NewUploader(wopan.Config{
		AccessToken: testToken,
		UploadURL:   srv.URL,
		ChunkSize:   16 << 10,
		Backoff:     fastBackoff{},
	})
	require.NoError(t, err)

	res, err := up.Upload(context.Background(), &wopan.UploadRequest{FilePath: path})
	require.NoError(t, err)

	assert.True(t, res.Confirmed)
	assert.Equal(t, "fid-flaky", res.Fid)
	assert.Equal(t, data, remote.assembled(), "retried parts must not corrupt the stream")
}

// ==== HTTP Endpoint Tests ====

func TestUploadEndpoint(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(t, "fid-api")
	srv := httptest.NewServer(remote.handler(t))
	defer srv.Close()

	apiSrv, err := api.NewServer(api.Config{
		AccessToken: testToken,
		DirectoryID: "0",
		UploadURL:   srv.URL,
		TempDir:     t.TempDir(),
		UploadDir:   filepath.Join(t.TempDir(), "uploads"),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(apiSrv)
	defer ts.Close()

	path := writeTestFile(t, "clip.mp4", bytes.Repeat([]byte("x"), 2048))

	body, err := json.Marshal(map[string]string{
		"file_path":    path,
		"directory_id": "3",
	})
	require.NoError(t, err)

	resp, err := ts.Client().Post(ts.URL+"/wopan/upload", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Status string `json:"status"`
		Fid    string `json:"fid"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "success", decoded.Status)
	assert.Equal(t, "fid-api", decoded.Fid)

	envelope := remote.lastEnvelope()
	assert.Equal(t, "3", envelope.DirectoryID)
	assert.Equal(t, int64(2048), envelope.FileSize)
}
