package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"hirelane/internal/domain"
)

const (
	MaxResumeBytes    = 5 << 20
	ResumeContentType = "application/pdf"
)

// Uploader stores a blob and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// ValidateResume rejects anything that is not a PDF of at most 5 MB. Both the
// declared type and the file magic must agree.
func ValidateResume(contentType string, data []byte) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != ResumeContentType {
		return fmt.Errorf("%w: resume must be %s", domain.ErrValidation, ResumeContentType)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: resume is empty", domain.ErrValidation)
	}
	if len(data) > MaxResumeBytes {
		return fmt.Errorf("%w: resume exceeds %d bytes", domain.ErrValidation, MaxResumeBytes)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("%w: resume is not a pdf", domain.ErrValidation)
	}
	return nil
}

type httpUploader struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPUploader PUTs objects under baseURL. Returns nil when baseURL is empty.
func NewHTTPUploader(baseURL, token string, timeout time.Duration, logger *zap.Logger) Uploader {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (u *httpUploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if u == nil || u.client == nil {
		return "", errors.New("objectstore: nil uploader")
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return "", errors.New("objectstore: empty object name")
	}

	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	endpoint := u.baseURL + "/" + strings.Join(segments, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("objectstore: put %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		u.logger.Warn("object upload failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(rb))),
		)
		return "", fmt.Errorf("objectstore: put %s: status=%d", name, resp.StatusCode)
	}
	return endpoint, nil
}

// Memory keeps uploads in process for local runs and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Upload(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = append([]byte(nil), data...)
	return "memory://" + name, nil
}

func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[name]
	return b, ok
}

var (
	_ Uploader = (*httpUploader)(nil)
	_ Uploader = (*Memory)(nil)
)
