package feed

import (
	"strings"
	"testing"

	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/record"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <image>
      <url>https://example.com/icon.png</url>
      <title>Test Feed</title>
      <link>https://example.com</link>
    </image>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>&lt;p&gt;Hello&lt;/p&gt;&lt;img src="https://example.com/inline.png" alt="Inline"&gt;</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>test@example.com (Test Author)</author>
      <category>Technology</category>
      <category>Programming</category>
      <enclosure url="https://example.com/photo.jpg" length="1234" type="image/jpeg" />
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Plain text</description>
      <guid>item-2</guid>
      <enclosure url="https://example.com/episode.mp3" length="99" type="audio/mpeg" />
    </item>
  </channel>
</rss>`

func TestParseRSS2(t *testing.T) {
	parser := NewParser()
	metadata, records, err := parser.Run([]byte(testRSS))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", metadata.Title)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}
	if metadata.ImageURL != "https://example.com/icon.png" {
		t.Errorf("Expected image URL, got: %s", metadata.ImageURL)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.String("title") != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", first.String("title"))
	}
	if first.String("full_url") != "https://example.com/item1" {
		t.Errorf("Expected full_url, got: %s", first.String("full_url"))
	}
	if first.String("display_date") != "2023/07/03 10:00:00 +0000" {
		t.Errorf("Expected display_date in API layout, got: %s", first.String("display_date"))
	}
	if !strings.Contains(first.String("body_full"), "<p>Hello</p>") {
		t.Errorf("Expected body_full to fall back to description, got: %s", first.String("body_full"))
	}
	if len(first.String("id")) != 64 {
		t.Errorf("Expected sha256 hex id, got: %s", first.String("id"))
	}
	if first.String("is_private") != "false" {
		t.Errorf("Expected is_private false, got: %s", first.String("is_private"))
	}

	tags := first.Objects("tags")
	if len(tags) != 2 || tags[0].String("name") != "Technology" || tags[1].String("name") != "Programming" {
		t.Errorf("Expected tags from categories, got: %v", tags)
	}
}

func TestParseMediaListing(t *testing.T) {
	parser := NewParser()
	_, records, err := parser.Run([]byte(testRSS))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	collection := media.Extract(records[0])
	images := collection.Items(media.Image)
	if len(images) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(images))
	}
	if images[0].URL() != "https://example.com/photo.jpg" {
		t.Errorf("Expected enclosure image first, got: %s", images[0].URL())
	}
	if images[1].URL() != "https://example.com/inline.png" {
		t.Errorf("Expected inline image second, got: %s", images[1].URL())
	}
	if images[0].Scale() != "full" {
		t.Errorf("Expected scale 'full', got: %s", images[0].Scale())
	}
	if images[0].Identifier() != "photo-full" {
		t.Errorf("Expected identifier 'photo-full', got: %s", images[0].Identifier())
	}
	if images[1].Raw().String("caption") != "Inline" {
		t.Errorf("Expected alt text as caption, got: %s", images[1].Raw().String("caption"))
	}

	second := media.Extract(records[1])
	if len(second.Items(media.Image)) != 0 {
		t.Errorf("Expected no images for second record")
	}

	var audio []*record.Raw
	for _, entry := range records[1].Objects("media") {
		audio = append(audio, entry.Objects("audio_files")...)
	}
	if len(audio) != 1 || audio[0].String("url") != "https://example.com/episode.mp3" {
		t.Errorf("Expected audio enclosure in listing, got: %v", audio)
	}
}

func TestParseDeduplicatesImages(t *testing.T) {
	data := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
<item>
  <title>Dup</title>
  <link>https://example.com/dup</link>
  <description>&lt;img src="https://example.com/a.jpg"&gt;&lt;img src="https://example.com/a.jpg"&gt;</description>
  <enclosure url="https://example.com/a.jpg" length="1" type="image/jpeg" />
</item>
</channel></rss>`

	_, records, err := NewParser().Run([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	images := media.Extract(records[0]).Items(media.Image)
	if len(images) != 1 {
		t.Errorf("Expected 1 image after deduplication, got %d", len(images))
	}
}

func TestParseAtom(t *testing.T) {
	data := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <link href="https://example.org/"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:feed</id>
  <entry>
    <title>Atom Entry</title>
    <link href="https://example.org/entry"/>
    <id>urn:uuid:entry</id>
    <updated>2023-07-03T12:00:00Z</updated>
    <content type="html">&lt;p&gt;Atom body&lt;/p&gt;</content>
  </entry>
</feed>`

	metadata, records, err := NewParser().Run([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if metadata.Title != "Atom Feed" {
		t.Errorf("Expected title 'Atom Feed', got: %s", metadata.Title)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].String("body_full") != "<p>Atom body</p>" {
		t.Errorf("Expected Atom content, got: %s", records[0].String("body_full"))
	}
	if records[0].String("display_date") != "2023/07/03 12:00:00 +0000" {
		t.Errorf("Expected updated date as display_date, got: %s", records[0].String("display_date"))
	}
}

func TestParseInvalidFeed(t *testing.T) {
	_, _, err := NewParser().Run([]byte("not a feed"))
	if err == nil {
		t.Error("Expected error for invalid feed")
	}
}
