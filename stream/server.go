package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/CreativeUnicorns/cinehub"
	"github.com/CreativeUnicorns/cinehub/metrics"
)

const (
	// DefaultContentType is sent when the server is built without one.
	DefaultContentType = "video/mp4"
	// DefaultChunkSize bounds each read from the resource.
	DefaultChunkSize = 64 * 1024
)

// ErrInterrupted is wrapped by Serve errors raised after the response
// headers were sent. The response can no longer be replaced.
var ErrInterrupted = errors.New("stream interrupted")

// Server answers GET requests for a single resource with range support.
type Server struct {
	source      Source
	contentType string
	chunkSize   int
	logger      cinehub.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithContentType overrides DefaultContentType.
func WithContentType(ct string) Option {
	return func(s *Server) {
		if ct != "" {
			s.contentType = ct
		}
	}
}

// WithChunkSize overrides DefaultChunkSize. Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithLogger sets the logger used for stream lifecycle messages.
func WithLogger(l cinehub.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a Server for source.
func NewServer(source Source, opts ...Option) *Server {
	s := &Server{
		source:      source,
		contentType: DefaultContentType,
		chunkSize:   DefaultChunkSize,
		logger:      cinehub.NewDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve writes the planned byte span of the resource to w. Content-Range is
// sent for every honoured Range header, also when the status is 200. A *RangeError or
// an open failure is returned before anything is written, leaving the status
// to the caller. The resource is closed on every return path.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	res, err := s.source.Open(ctx)
	if err != nil {
		metrics.RecordStream("error", 0)
		return err
	}
	defer res.Close()

	plan, err := PlanRange(r.Header.Get("Range"), res.Size())
	if err != nil {
		metrics.RecordStream(strconv.Itoa(http.StatusBadRequest), 0)
		return err
	}

	s.logger.Debug("stream begins", "status", plan.Status, "start", plan.Start, "end", plan.End, "size", plan.Size)

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", s.contentType)
	h.Set("Content-Length", strconv.FormatInt(plan.ContentLength, 10))
	if plan.Ranged {
		h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", plan.Start, plan.End, plan.Size))
	}
	w.WriteHeader(plan.Status)

	if r.Method == http.MethodHead || plan.ContentLength <= 0 {
		metrics.RecordStream(strconv.Itoa(plan.Status), 0)
		return nil
	}

	body := &contextReader{ctx: ctx, r: io.NewSectionReader(res, plan.Start, plan.ContentLength)}
	written, err := io.CopyBuffer(writerOnly{w}, body, make([]byte, s.chunkSize))
	if err != nil {
		metrics.RecordStream("error", written)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Info("stream aborted by client", "written", written, "expected", plan.ContentLength)
			return nil
		}
		return fmt.Errorf("stream: copy failed after %d bytes: %w: %w", written, ErrInterrupted, err)
	}

	metrics.RecordStream(strconv.Itoa(plan.Status), written)
	return nil
}

// writerOnly hides io.ReaderFrom so copies go through the chunk buffer.
type writerOnly struct {
	io.Writer
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
