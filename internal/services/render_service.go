// internal/services/render_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/javajoker/labelhub/internal/config"
	"github.com/javajoker/labelhub/internal/models"
	"github.com/javajoker/labelhub/internal/utils"
)

const (
	markupFormField   = "file"
	maxRejectionBytes = 512
)

// Artifact is a rendered label on local disk. Whoever holds it must call
// Release once it is no longer needed.
type Artifact struct {
	Format   models.LabelFormat
	Path     string
	Size     int64
	Checksum string
	Name     string
}

// FileName is the name the artifact is stored under.
func (a *Artifact) FileName() string {
	if a.Name != "" {
		return a.Name
	}
	return filepath.Base(a.Path)
}

func (a *Artifact) ReadAll() ([]byte, error) {
	return os.ReadFile(a.Path)
}

// Release deletes the temporary file. It is safe to call more than once.
func (a *Artifact) Release() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove artifact %s: %w", a.Path, err)
	}
	return nil
}

// ReleaseAll releases every non-nil artifact and logs the ones that fail.
func ReleaseAll(artifacts ...*Artifact) {
	for _, artifact := range artifacts {
		if err := artifact.Release(); err != nil {
			logrus.WithError(err).Warn("Failed to release render artifact")
		}
	}
}

type RenderService struct {
	client  *http.Client
	config  config.RendererConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func NewRenderService(cfg config.RendererConfig) *RenderService {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConcurrent
	transport.MaxIdleConnsPerHost = maxConcurrent

	s := &RenderService{
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return s
}

// Render converts markup into a PDF or PNG label of the given size. The
// returned artifact is owned by the caller. Nothing is retried.
func (s *RenderService) Render(ctx context.Context, markup string, format models.LabelFormat, size string) (*Artifact, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, &RenderError{Reason: RenderRejected, Message: "markup is empty"}
	}
	if !utils.IsLabelSize(size) {
		return nil, &RenderError{Reason: RenderRejected, Message: fmt.Sprintf("invalid label size %q", size)}
	}
	if format != models.LabelFormatPDF && format != models.LabelFormatPNG {
		return nil, &RenderError{Reason: RenderRejected, Message: fmt.Sprintf("unsupported format %q", format)}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, waitFailure(ctx, err)
	}
	defer s.sem.Release(1)

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, waitFailure(ctx, err)
		}
	}

	start := time.Now()
	req, err := s.newRequest(ctx, markup, format, size)
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxRejectionBytes))
		return nil, &RenderError{
			Reason:     RenderRejected,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(excerpt)),
		}
	}

	artifact, err := s.writeTemp(resp.Body, format)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"format":   format,
		"size":     size,
		"bytes":    artifact.Size,
		"duration": time.Since(start).Milliseconds(),
	}).Debug("Label rendered")

	return artifact, nil
}

func (s *RenderService) endpoint(size string) string {
	return fmt.Sprintf("%s/v1/printers/%s/labels/%s/0/",
		strings.TrimRight(s.config.BaseURL, "/"), s.config.Dpmm, url.PathEscape(size))
}

func (s *RenderService) newRequest(ctx context.Context, markup string, format models.LabelFormat, size string) (*http.Request, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField(markupFormField, markup); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(size), &body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Rotation", strconv.Itoa(s.config.Rotation))
	req.Header.Set("Accept", format.MimeType())
	return req, nil
}

// writeTemp streams body into a uniquely named temp file. The file is removed
// again on every failure.
func (s *RenderService) writeTemp(body io.Reader, format models.LabelFormat) (*Artifact, error) {
	file, err := os.CreateTemp(s.config.TempDir, "label-*"+format.Ext())
	if err != nil {
		return nil, fmt.Errorf("failed to create temp artifact: %w", err)
	}

	src := &trackingReader{r: body}
	hasher := utils.NewFileHasher()
	n, copyErr := io.Copy(io.MultiWriter(file, hasher), src)
	closeErr := file.Close()

	fail := func(err error) (*Artifact, error) {
		os.Remove(file.Name())
		return nil, err
	}

	switch {
	case src.err != nil:
		return fail(transportFailure(src.err))
	case copyErr != nil:
		return fail(fmt.Errorf("failed to write temp artifact: %w", copyErr))
	case closeErr != nil:
		return fail(fmt.Errorf("failed to close temp artifact: %w", closeErr))
	case n == 0:
		return fail(&RenderError{Reason: RenderRejected, StatusCode: http.StatusOK, Message: "empty response body"})
	}

	return &Artifact{
		Format:   format,
		Path:     file.Name(),
		Size:     n,
		Checksum: utils.HexDigest(hasher),
	}, nil
}

// trackingReader remembers read errors so they can be told apart from
// local write errors.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

func transportFailure(err error) *RenderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &RenderError{Reason: RenderTimeout, Err: err}
	}
	return &RenderError{Reason: RenderUnreachable, Err: err}
}

func waitFailure(ctx context.Context, err error) *RenderError {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &RenderError{Reason: RenderUnreachable, Err: ctx.Err()}
	}
	// rate.Limiter reports a deadline it cannot meet before the context expires
	return &RenderError{Reason: RenderTimeout, Err: err}
}
