package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/resources"
)

// Parser turns RSS/Atom documents into post-shaped records, so feed entries
// go through the same documents as API posts.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []*record.Raw, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	if feed.PublishedParsed != nil {
		metadata.FeedPublishedAt = feed.PublishedParsed
	}
	if feed.UpdatedParsed != nil {
		metadata.FeedUpdatedAt = feed.UpdatedParsed
	}

	records := make([]*record.Raw, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		records = append(records, p.normalizeItem(item))
	}

	return metadata, records, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) *record.Raw {
	id := p.generateContentHash(item)
	body := cmp.Or(item.Content, item.Description)

	raw := record.New().
		With("id", id).
		With("title", item.Title).
		With("guid", cmp.Or(item.GUID, item.Link)).
		With("body_full", body).
		With("body", item.Description)

	if published := cmp.Or(item.PublishedParsed, item.UpdatedParsed); published != nil {
		raw.With("display_date", published.Format(resources.DateLayout))
	} else {
		raw.With("display_date", nil)
	}

	raw.With("full_url", item.Link).
		With("is_private", false).
		With("tags", p.extractTags(item)).
		With("author", strings.Join(p.extractAuthors(item), ", ")).
		With("media", p.extractMedia(item, id, body))

	return raw
}

func (p *Parser) extractTags(item *gofeed.Item) []any {
	tags := make([]any, 0, len(item.Categories))
	for _, category := range item.Categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		tags = append(tags, record.New().With("name", category))
	}
	return tags
}

// extractMedia builds a media listing shaped like the blog API's: every image
// becomes a single-rendition group keyed "full".
func (p *Parser) extractMedia(item *gofeed.Item, postID, body string) []any {
	images := []any{}
	audio := []any{}
	videos := []any{}
	seen := make(map[string]bool)

	addImage := func(url, caption string, size int64) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true

		rendition := record.New().With("url", url)
		if size > 0 {
			rendition.With("size", size)
		}
		if caption != "" {
			rendition.With("caption", caption)
		}
		rendition.With("post_id", postID)
		images = append(images, record.New().With("full", rendition))
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		size, _ := strconv.ParseInt(enclosure.Length, 10, 64)

		switch {
		case strings.HasPrefix(enclosure.Type, "image/"):
			addImage(enclosure.URL, item.Title, size)
		case strings.HasPrefix(enclosure.Type, "audio/"):
			audio = append(audio, record.New().With("url", enclosure.URL).With("type", enclosure.Type))
		case strings.HasPrefix(enclosure.Type, "video/"):
			videos = append(videos, record.New().With("url", enclosure.URL).With("type", enclosure.Type))
		}
	}

	if item.Image != nil {
		addImage(item.Image.URL, cmp.Or(item.Image.Title, item.Title), 0)
	}

	if body != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err == nil {
			doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
				src, _ := s.Attr("src")
				alt, _ := s.Attr("alt")
				addImage(strings.TrimSpace(src), alt, 0)
			})
		}
	}

	return []any{
		record.New().With("images", images),
		record.New().With("audio_files", audio),
		record.New().With("videos", videos),
	}
}

func (p *Parser) generateContentHash(item *gofeed.Item) string {
	content := fmt.Sprintf("%s|%s",
		item.Title,
		cmp.Or(item.GUID, item.Link))

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func (p *Parser) extractAuthors(item *gofeed.Item) []string {
	var authors []string

	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author != nil {
				authorStr := p.formatAuthor(author.Name, author.Email)
				if authorStr != "" {
					authors = append(authors, authorStr)
				}
			}
		}
	} else if item.Author != nil {
		authorStr := p.formatAuthor(item.Author.Name, item.Author.Email)
		if authorStr != "" {
			authors = append(authors, authorStr)
		}
	}

	return authors
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}
