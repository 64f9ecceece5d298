package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/blog-porter/app/feed"
	"github.com/lysyi3m/blog-porter/app/record"
)

// ExtractContentTask fetches the article page of a feed entry that came
// without content and fills in body_full. The source record is left as is;
// the amended copy is available from Record once the task succeeds.
type ExtractContentTask struct {
	Task
	FeedConfig       *feed.Config
	source           *record.Raw
	result           *record.Raw
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
}

func NewExtractContentTask(feedConfig *feed.Config, raw *record.Raw, httpClient *http.Client, contentExtractor *feed.ContentExtractor, userAgent string) *ExtractContentTask {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ExtractContentTask{
		Task:             NewTask(TaskTypeExtractContent, raw.String("full_url")),
		FeedConfig:       feedConfig,
		source:           raw,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        userAgent,
	}
}

// Record returns the amended record, or the source record if extraction did
// not succeed.
func (t *ExtractContentTask) Record() *record.Raw {
	if t.result != nil {
		return t.result
	}
	return t.source
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	link := t.source.String("full_url")
	if link == "" {
		return Permanent(fmt.Errorf("item has no link"))
	}

	data, contentType, err := t.fetchArticleContent(ctx, link)
	if err != nil {
		return fmt.Errorf("failed to fetch article content: %w", err)
	}

	extractedContent, err := t.contentExtractor.Run(data, contentType, link)
	if err != nil {
		return Permanent(fmt.Errorf("failed to extract content: %w", err))
	}

	t.result = t.source.Clone().With("body_full", extractedContent)

	slog.Debug("Content extracted successfully", "feed", t.FeedConfig.Name, "url", link, "content_length", len(extractedContent))
	return nil
}

func (t *ExtractContentTask) fetchArticleContent(ctx context.Context, url string) ([]byte, string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(t.FeedConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, "", Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, "", Permanent(err)
		}
		return nil, "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, "", Permanent(fmt.Errorf("content type is not HTML: %s", contentType))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return data, contentType, nil
}
