// Package upload forwards a produced media file to an external HTTP endpoint
// as a single multipart POST.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 30 * time.Second
	FileField      = "audio_file"
	audioMIME      = "audio/mpeg"
	maxBodyBytes   = 1 << 20
)

var (
	// ErrNotConfigured means no external endpoint is set; no request is made.
	ErrNotConfigured = errors.New("EXTERNAL_API_URL is not configured")
	// ErrTransport wraps connection failures and timeouts.
	ErrTransport = errors.New("upload transport failed")
)

// StatusError reports a non-2xx answer from the external endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("External service returned status %d: %s", e.StatusCode, e.Body)
}

// Request is one file plus the metadata sent alongside it.
type Request struct {
	Title    string
	URL      string
	Filename string
	// ContentType of File; defaults to audio/mpeg.
	ContentType string
	File        io.Reader
}

// Response is the upstream answer for a successful upload.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client posts files to a fixed endpoint. The zero endpoint is valid and makes
// every Send fail with ErrNotConfigured.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Endpoint returns the configured URL, empty when uploads are disabled.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SendFile opens path and sends it with the given metadata.
func (c *Client) SendFile(ctx context.Context, path string, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}
	f, err := os.Open(path) //nolint:gosec // path is built by the application
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer func() { _ = f.Close() }()

	req.File = f
	if req.Filename == "" {
		req.Filename = filepath.Base(path)
	}
	return c.Send(ctx, req)
}

// Send performs one multipart POST bounded by the client timeout. It never
// retries.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType := multipartBody(req)
	defer func() { _ = body.Close() }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	logger.Info().Str("endpoint", c.endpoint).Str("filename", req.Filename).Msg("uploading to external service")
	httpResponse, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Warn().Err(err).Msg("upload request failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = httpResponse.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}
	logger.Info().Int("status", httpResponse.StatusCode).Msg("external service responded")

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: httpResponse.StatusCode, Body: string(respBody)}
	}
	return &Response{
		StatusCode:  httpResponse.StatusCode,
		ContentType: httpResponse.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// multipartBody streams the form through a pipe so the file is never fully
// buffered.
func multipartBody(req Request) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeForm(mw, req)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, req Request) error {
	fields := [][2]string{{"title", req.Title}, {"url", req.URL}, {"filename", req.Filename}}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return fmt.Errorf("write field %s: %w", field[0], err)
		}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = audioMIME
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FileField, req.Filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if req.File == nil {
		return nil
	}
	if _, err := io.Copy(part, req.File); err != nil {
		return fmt.Errorf("copy file part: %w", err)
	}
	return nil
}
