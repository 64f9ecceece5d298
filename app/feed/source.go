package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/blog-porter/app/record"
)

// Source fetches a configured feed and returns its entries as post records.
type Source struct {
	httpClient *http.Client
	parser     *Parser
	filterer   *Filterer
	userAgent  string
}

func NewSource(httpClient *http.Client, parser *Parser, filterer *Filterer, userAgent string) *Source {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Source{
		httpClient: httpClient,
		parser:     parser,
		filterer:   filterer,
		userAgent:  userAgent,
	}
}

func (s *Source) Fetch(ctx context.Context, feedConfig *Config) (*Metadata, []*record.Raw, error) {
	data, err := s.fetchFeed(ctx, feedConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, records, err := s.parser.Run(data)
	if err != nil {
		return nil, nil, err
	}

	total := len(records)
	records = s.filterer.Run(records, feedConfig)
	if feedConfig.Settings.MaxItems > 0 && len(records) > feedConfig.Settings.MaxItems {
		records = records[:feedConfig.Settings.MaxItems]
	}

	slog.Info("Feed fetched",
		"feed", feedConfig.Name,
		"title", metadata.Title,
		"total", total,
		"kept", len(records))

	return metadata, records, nil
}

func (s *Source) fetchFeed(ctx context.Context, feedConfig *Config) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(feedConfig.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", feedConfig.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
