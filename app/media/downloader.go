package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Downloader fetches the bytes behind a media URL into dst, or into a
// temporary file when dst is nil, and returns the file rewound to its start.
type Downloader interface {
	Download(ctx context.Context, url string, dst *os.File) (*os.File, error)
}

type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download %s: HTTP error: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

type HTTPDownloader struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	tempDir    string
}

func NewHTTPDownloader(httpClient *http.Client, userAgent string, timeout time.Duration, tempDir string) *HTTPDownloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPDownloader{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		tempDir:    tempDir,
	}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string, dst *os.File) (*os.File, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	f := dst
	if f == nil {
		f, err = os.CreateTemp(d.tempDir, "media-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp file: %w", err)
		}
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		if dst == nil {
			f.Close()
			os.Remove(f.Name())
		}
		return nil, &DownloadError{URL: url, Err: err}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", f.Name(), err)
	}

	slog.Debug("Media downloaded", "url", url, "bytes", n, "path", f.Name())

	return f, nil
}
