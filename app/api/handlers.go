package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/blog-porter/app/database"
	"github.com/lysyi3m/blog-porter/app/feed"
	"github.com/lysyi3m/blog-porter/app/store"
)

const defaultLimit = 100

var validKinds = map[string]bool{
	"post":  true,
	"page":  true,
	"theme": true,
}

func NewHandler(documents database.DocumentRepository, media database.MediaRepository,
	stats database.StatsRepository, items ItemReader, site SiteInfo) *Handler {
	return &Handler{
		documents: documents,
		media:     media,
		stats:     stats,
		items:     items,
		generator: feed.NewGenerator(),
		site:      site,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.site.Version,
	}

	if _, err := h.stats.GetStats(); err != nil {
		slog.Error("Database error", "operation", "health", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": stats.Documents,
		"media":     stats.Media,
		"kinds":     stats.Kinds,
	})
}

// GetFeed serves the imported documents as RSS.
func (h *Handler) GetFeed(c *gin.Context) {
	docs, err := h.documents.ListDocuments("", limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_documents", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	imported := make([]database.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Status == database.StatusImported {
			imported = append(imported, doc)
		}
	}

	channel := feed.Channel{
		Title:   h.site.Title,
		Link:    h.site.Link,
		Version: h.site.Version,
	}
	if h.site.BaseURL != "" {
		channel.SelfLink = strings.TrimRight(h.site.BaseURL, "/") + "/feed.xml"
	}

	rss, err := h.generator.Run(channel, imported)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(imported)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListDocuments(c *gin.Context) {
	kind := c.Param("kind")
	if kind != "" && !validKinds[kind] {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown document kind"})
		return
	}

	docs, err := h.documents.ListDocuments(kind, limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_documents", "kind", kind, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentJSON(doc))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"documents": out,
		"total":     len(out),
	})
}

func (h *Handler) APIListMedia(c *gin.Context) {
	status := c.Query("status")

	media, err := h.media.ListAllMedia(status, limitParam(c))
	if err != nil {
		slog.Error("Database error", "operation", "list_media", "status", status, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]map[string]interface{}, 0, len(media))
	for _, m := range media {
		out = append(out, mediaJSON(m))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"media": out,
		"total": len(out),
	})
}

// APIGetItem returns a created item with its ledger entry, if any. The
// extension defaults to .html and can be set with ?ext=.
func (h *Handler) APIGetItem(c *gin.Context) {
	identifier := c.Param("identifier")
	if identifier == "" || identifier == "/" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing item identifier"})
		return
	}
	if !strings.HasSuffix(identifier, "/") {
		identifier += "/"
	}

	ext := c.DefaultQuery("ext", ".html")
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if path.Base(ext) != ext {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid extension"})
		return
	}

	item, err := h.items.ReadItem(identifier, ext)
	if err != nil {
		if errors.Is(err, store.ErrInvalidIdentifier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item identifier"})
			return
		}
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
			return
		}
		slog.Error("Store error", "operation", "read_item", "identifier", identifier, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store error"})
		return
	}

	response := gin.H{
		"identifier": item.Identifier,
		"attributes": item.Attributes,
		"content":    string(item.Content),
	}

	doc, err := h.documents.GetDocumentByIdentifier(identifier)
	if err != nil {
		slog.Error("Database error", "operation", "get_document", "identifier", identifier, "error", err)
	} else if doc != nil {
		response["document"] = documentJSON(*doc)
		if media, err := h.media.ListMedia(doc.ID); err == nil {
			list := make([]map[string]interface{}, 0, len(media))
			for _, m := range media {
				list = append(list, mediaJSON(m))
			}
			response["media"] = list
		}
	}

	c.JSON(http.StatusOK, response)
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}

func documentJSON(doc database.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":          doc.ID,
		"kind":        doc.Kind,
		"source_id":   doc.SourceID,
		"identifier":  doc.Identifier,
		"title":       doc.Title,
		"source_url":  doc.SourceURL,
		"status":      doc.Status,
		"error":       doc.Error,
		"imported_at": doc.ImportedAt,
		"updated_at":  doc.UpdatedAt,
	}
}

func mediaJSON(m database.Media) map[string]interface{} {
	return map[string]interface{}{
		"document_id": m.DocumentID,
		"kind":        m.Kind,
		"url":         m.URL,
		"scale":       m.Scale,
		"identifier":  m.Identifier,
		"extension":   m.Extension,
		"size":        m.Size,
		"status":      m.Status,
		"error":       m.Error,
		"attempts":    m.Attempts,
	}
}
