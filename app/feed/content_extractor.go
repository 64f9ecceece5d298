package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the readable article from an HTML page. contentType is the
// response header value and helps detect the page encoding; pageURL, when
// set, resolves relative links.
func (e *ContentExtractor) Run(data []byte, contentType, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	enc, name, _ := charset.DetermineEncoding(data, contentType)
	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())

	var base *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			base = u
		}
	}

	article, err := readability.FromReader(reader, base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"charset", name,
		"content_length", len(article.Content))

	return article.Content, nil
}
