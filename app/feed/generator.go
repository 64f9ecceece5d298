package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/blog-porter/app/database"
)

// Channel describes the RSS channel the generator writes.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Version     string
}

// Generator renders imported documents as an RSS 2.0 feed.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel, docs []database.Document) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	description := channel.Description
	if description == "" {
		description = fmt.Sprintf("Documents imported into %s", channel.Title)
	}
	g.writeElement(&buf, "description", description, 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(docs) > 0 && !docs[0].UpdatedAt.IsZero() {
		lastBuildDate = docs[0].UpdatedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Blog-Porter/%s", channel.Version), 4)

	for _, doc := range docs {
		g.writeItem(&buf, doc)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, doc database.Document) {
	buf.WriteString("    <item>\n")

	if doc.Identifier != "" {
		buf.WriteString("      <guid isPermaLink=\"false\">")
		xml.EscapeText(buf, []byte(doc.Identifier))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", doc.Title, 6)

	if g.isURL(doc.SourceURL) {
		g.writeElement(buf, "link", doc.SourceURL, 6)
	}

	g.writeElement(buf, "description", fmt.Sprintf("%s %s imported as %s", doc.Kind, doc.SourceID, doc.Identifier), 6)

	if !doc.ImportedAt.IsZero() {
		g.writeElement(buf, "pubDate", doc.ImportedAt.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", doc.Kind, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
