package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreativeUnicorns/cinehub"
)

// memResource is an in-memory Resource that records Close.
type memResource struct {
	*bytes.Reader
	closed  *atomic.Int32
	readErr error
}

func (m *memResource) ReadAt(p []byte, off int64) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.Reader.ReadAt(p, off)
}

func (m *memResource) Close() error {
	m.closed.Add(1)
	return nil
}

type memSource struct {
	data    []byte
	opened  atomic.Int32
	closed  atomic.Int32
	openErr error
	readErr error
}

func (s *memSource) Open(_ context.Context) (Resource, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened.Add(1)
	return &memResource{Reader: bytes.NewReader(s.data), closed: &s.closed, readErr: s.readErr}, nil
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func newTestServer(src Source) *Server {
	return NewServer(src, WithChunkSize(64), WithLogger(cinehub.NewLogger(io.Discard, cinehub.LogLevelDebug, false)))
}

func TestServer_Serve(t *testing.T) {
	data := testData(1000)

	tests := []struct {
		name         string
		rangeHeader  string
		status       int
		length       string
		contentRange string
		body         []byte
	}{
		{
			name:   "full content",
			status: http.StatusOK,
			length: "1000",
			body:   data,
		},
		{
			name:         "partial content",
			rangeHeader:  "bytes=100-199",
			status:       http.StatusPartialContent,
			length:       "100",
			contentRange: "bytes 100-199/1000",
			body:         data[100:200],
		},
		{
			name:         "open ended",
			rangeHeader:  "bytes=900-",
			status:       http.StatusPartialContent,
			length:       "100",
			contentRange: "bytes 900-999/1000",
			body:         data[900:],
		},
		{
			name:         "clamped end downgrades to 200",
			rangeHeader:  "bytes=0-5000",
			status:       http.StatusOK,
			length:       "1000",
			contentRange: "bytes 0-999/1000",
			body:         data,
		},
		{
			name:         "clamped end with offset start keeps content range",
			rangeHeader:  "bytes=500-5000",
			status:       http.StatusOK,
			length:       "500",
			contentRange: "bytes 500-999/1000",
			body:         data[500:],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &memSource{data: data}
			srv := newTestServer(src)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
			if tt.rangeHeader != "" {
				req.Header.Set("Range", tt.rangeHeader)
			}
			rec := httptest.NewRecorder()

			require.NoError(t, srv.Serve(rec, req))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
			assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.length, rec.Header().Get("Content-Length"))
			assert.Equal(t, tt.contentRange, rec.Header().Get("Content-Range"))
			assert.Equal(t, tt.body, rec.Body.Bytes())
			assert.Equal(t, int32(1), src.closed.Load(), "resource must be closed")
		})
	}
}

func TestServer_RejectsRangeBeforeWriting(t *testing.T) {
	src := &memSource{data: testData(1000)}
	srv := newTestServer(src)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	req.Header.Set("Range", "bytes=1000-1001")
	rec := httptest.NewRecorder()

	err := srv.Serve(rec, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRangeNotSatisfiable)
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestServer_OpenFailure(t *testing.T) {
	openErr := errors.New("disk gone")
	srv := newTestServer(&memSource{openErr: openErr})

	err := srv.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, openErr)
}

func TestServer_ReadFailurePropagates(t *testing.T) {
	readErr := errors.New("bad sector")
	src := &memSource{data: testData(1000), readErr: readErr}
	srv := newTestServer(src)

	err := srv.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestServer_ClientAbortReleasesResource(t *testing.T) {
	src := &memSource{data: testData(1000)}
	srv := newTestServer(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	require.NoError(t, srv.Serve(rec, req))
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestServer_HeadWritesNoBody(t *testing.T) {
	src := &memSource{data: testData(1000)}
	srv := newTestServer(src)

	rec := httptest.NewRecorder()
	require.NoError(t, srv.Serve(rec, httptest.NewRequest(http.MethodHead, "/", nil)))
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}

func TestServer_ContentTypeOption(t *testing.T) {
	srv := NewServer(&memSource{data: testData(10)}, WithContentType("video/webm"), WithContentType(""))
	rec := httptest.NewRecorder()

	require.NoError(t, srv.Serve(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, "video/webm", rec.Header().Get("Content-Type"))
}

func TestFileSource(t *testing.T) {
	data := testData(4096)
	path := filepath.Join(t.TempDir(), "movie.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.mp4")).Open(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := NewFileSource(t.TempDir()).Open(context.Background())
		assert.Error(t, err)
	})

	t.Run("concurrent ranged reads", func(t *testing.T) {
		srv := NewServer(NewFileSource(path), WithLogger(cinehub.NewLogger(io.Discard, cinehub.LogLevelError, true)))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				start := i * 512
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set("Range", "bytes="+strconv.Itoa(start)+"-"+strconv.Itoa(start+511))
				rec := httptest.NewRecorder()

				assert.NoError(t, srv.Serve(rec, req))
				assert.Equal(t, http.StatusPartialContent, rec.Code)
				assert.Equal(t, data[start:start+512], rec.Body.Bytes())
			}(i)
		}
		wg.Wait()
	})
}
