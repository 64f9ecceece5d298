package importer

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/blog-porter/app/client"
	"github.com/lysyi3m/blog-porter/app/database"
	"github.com/lysyi3m/blog-porter/app/feed"
	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/record"
	"github.com/lysyi3m/blog-porter/app/resources"
	"github.com/lysyi3m/blog-porter/app/slug"
	"github.com/lysyi3m/blog-porter/app/store"
	"github.com/lysyi3m/blog-porter/app/tasks"
)

// Store prefixes per document kind.
var documentPrefixes = map[resources.Kind]string{
	resources.KindPost:  "/posts/",
	resources.KindPage:  "/pages/",
	resources.KindTheme: "/themes/",
}

type Options struct {
	EmbedStyle     EmbedStyle
	StripSelectors []string
	Force          bool
}

// Importer moves documents and their media from a source into a store.
// Records are imported one at a time; the media of a record are downloaded
// on the pool and all of them finish before its content is rewritten.
type Importer struct {
	store      store.Store
	downloader media.Downloader
	pool       tasks.PoolInterface
	registry   *resources.Registry
	opts       Options

	documents database.DocumentRepository
	mediaRepo database.MediaRepository

	httpClient *http.Client
	extractor  *feed.ContentExtractor
	userAgent  string

	// media store targets handed out in this run, by source URL
	claimed map[string]string
}

func New(st store.Store, downloader media.Downloader, pool tasks.PoolInterface, registry *resources.Registry, opts Options) *Importer {
	if registry == nil {
		registry = resources.DefaultRegistry()
	}
	if opts.EmbedStyle == "" {
		opts.EmbedStyle = EmbedShortcode
	}
	return &Importer{
		store:      st,
		downloader: downloader,
		pool:       pool,
		registry:   registry,
		opts:       opts,
		claimed:    make(map[string]string),
	}
}

// WithLedger records every import in the given repositories and skips
// records already imported unless Force is set.
func (im *Importer) WithLedger(documents database.DocumentRepository, mediaRepo database.MediaRepository) *Importer {
	im.documents = documents
	im.mediaRepo = mediaRepo
	return im
}

// WithContentExtractor enables fetching full articles for feed entries that
// come without content.
func (im *Importer) WithContentExtractor(httpClient *http.Client, extractor *feed.ContentExtractor, userAgent string) *Importer {
	im.httpClient = httpClient
	im.extractor = extractor
	im.userAgent = userAgent
	return im
}

// Run imports everything the plan names. Listing failures are logged and
// the run moves on; an authorization failure stops it.
func (im *Importer) Run(ctx context.Context, plan *feed.Plan, blog BlogSource, feeds FeedSource, feedConfigs []*feed.Config) (*Summary, error) {
	summary := &Summary{}

	steps := []struct {
		kind string
		run  func() error
	}{
		{"posts", func() error { return im.ImportPosts(ctx, blog, postQuery(plan.Tag), summary) }},
		{"pages", func() error { return im.ImportPages(ctx, blog, nil, summary) }},
		{"theme", func() error { return im.ImportTheme(ctx, blog, nil, summary) }},
	}

	for _, step := range steps {
		if !plan.Includes(step.kind) {
			continue
		}
		if blog == nil {
			return summary, fmt.Errorf("no blog source configured for %s", step.kind)
		}
		if err := step.run(); err != nil {
			if fatal(ctx, err) {
				return summary, err
			}
			slog.Error("Import step failed", "step", step.kind, "error", err)
			summary.addListingError(step.kind, err)
		}
	}

	for _, feedConfig := range feedConfigs {
		if feeds == nil {
			return summary, fmt.Errorf("no feed source configured for %s", feedConfig.Name)
		}
		if err := im.ImportFeed(ctx, feeds, feedConfig, summary); err != nil {
			if fatal(ctx, err) {
				return summary, err
			}
			slog.Error("Feed import failed", "feed", feedConfig.Name, "error", err)
			summary.addListingError(feedConfig.Name, err)
		}
	}

	slog.Info("Import completed",
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"media_stored", summary.MediaStored,
		"media_failed", summary.MediaFailed)

	return summary, nil
}

func postQuery(tag string) url.Values {
	if tag == "" {
		return nil
	}
	return url.Values{"tag": {tag}}
}

func (im *Importer) ImportPosts(ctx context.Context, blog BlogSource, query url.Values, summary *Summary) error {
	return blog.EachPost(ctx, query, func(res resources.Resource) error {
		return im.importResource(ctx, res, summary)
	})
}

func (im *Importer) ImportPages(ctx context.Context, blog BlogSource, query url.Values, summary *Summary) error {
	pages, err := blog.Pages(ctx, query)
	if err != nil {
		return err
	}
	for _, res := range pages {
		if err := im.importResource(ctx, res, summary); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) ImportTheme(ctx context.Context, blog BlogSource, query url.Values, summary *Summary) error {
	theme, err := blog.Theme(ctx, query)
	if err != nil {
		return err
	}
	return im.importResource(ctx, theme, summary)
}

// ImportFeed imports a feed's entries as posts. With extract_content set,
// entries without content get the readable part of their article page
// first; those fetches run on the pool.
func (im *Importer) ImportFeed(ctx context.Context, feeds FeedSource, feedConfig *feed.Config, summary *Summary) error {
	_, records, err := feeds.Fetch(ctx, feedConfig)
	if err != nil {
		return err
	}

	if feedConfig.Settings.ExtractContent && im.extractor != nil {
		records = im.extractContent(ctx, feedConfig, records)
	}

	for _, raw := range records {
		if err := im.importResource(ctx, im.registry.Wrap(resources.KindPost, raw), summary); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) extractContent(ctx context.Context, feedConfig *feed.Config, records []*record.Raw) []*record.Raw {
	group := im.pool.NewGroup()
	pending := make(map[int]*tasks.ExtractContentTask)

	for i, raw := range records {
		if strings.TrimSpace(raw.String("body_full")) != "" || raw.String("full_url") == "" {
			continue
		}
		task := tasks.NewExtractContentTask(feedConfig, raw, im.httpClient, im.extractor, im.userAgent)
		if err := group.Go(ctx, task); err != nil {
			slog.Warn("Failed to enqueue ExtractContentTask", "feed", feedConfig.Name, "url", raw.String("full_url"), "error", err)
			continue
		}
		pending[i] = task
	}

	if err := group.Wait(); err != nil {
		slog.Warn("Content extraction incomplete", "feed", feedConfig.Name, "error", err)
	}

	out := make([]*record.Raw, len(records))
	copy(out, records)
	for i, task := range pending {
		out[i] = task.Record()
	}
	return out
}

// importResource imports one listed resource. Only errors that must stop
// the whole run are returned; anything else is counted and logged.
func (im *Importer) importResource(ctx context.Context, res resources.Resource, summary *Summary) error {
	doc, ok := res.(resources.Document)
	if !ok {
		slog.Warn("Skipping resource without document type", "id", res.Record().String("id"))
		return nil
	}

	result, err := im.ImportDocument(ctx, doc)
	summary.add(result)
	if err != nil {
		if fatal(ctx, err) {
			return err
		}
		slog.Error("Failed to import document", "kind", doc.Kind(), "identifier", doc.Identifier(), "error", err)
	}
	return nil
}

// ImportDocument imports a single document: downloads and stores its media,
// rewrites the embeds of stored items and creates the document item.
func (im *Importer) ImportDocument(ctx context.Context, doc resources.Document) (*Result, error) {
	raw := doc.Record()
	result := &Result{
		Kind:     doc.Kind(),
		SourceID: sourceID(doc),
	}

	prefix, ok := documentPrefixes[doc.Kind()]
	if !ok {
		prefix = "/" + string(doc.Kind()) + "s/"
	}
	result.Identifier = slug.Join(prefix, doc.Identifier())

	hash, err := contentHash(raw)
	if err != nil {
		result.fail(err)
		return result, err
	}

	if !im.opts.Force && im.documents != nil {
		imported, err := im.documents.IsImported(string(doc.Kind()), result.SourceID, hash)
		if err != nil {
			result.fail(err)
			return result, err
		}
		if imported {
			result.Status = database.StatusSkipped
			slog.Debug("Document already imported, skipping", "kind", doc.Kind(), "identifier", result.Identifier)
			return result, nil
		}
	}

	downloads, err := im.storeMedia(ctx, result.Identifier, doc)
	if err != nil {
		result.fail(err)
		im.record(doc, result, hash, downloads)
		return result, err
	}

	if err := im.rewrite(doc, downloads, result); err != nil {
		result.fail(err)
		im.record(doc, result, hash, downloads)
		return result, err
	}

	if err := im.createItems(ctx, doc, result.Identifier); err != nil {
		result.fail(err)
		im.record(doc, result, hash, downloads)
		return result, err
	}

	result.Status = database.StatusImported
	im.record(doc, result, hash, downloads)

	slog.Info("Document imported",
		"kind", doc.Kind(),
		"identifier", result.Identifier,
		"media", result.MediaStored,
		"media_failed", result.MediaFailed,
		"rewritten", result.Rewritten)

	return result, nil
}

// storeMedia downloads every media item of the document on the pool. Items
// that were stored take their store identifier; failed ones keep the
// default identifier.
func (im *Importer) storeMedia(ctx context.Context, owner string, doc resources.Document) ([]*tasks.DownloadMediaTask, error) {
	items := doc.Media().All()
	if len(items) == 0 {
		return nil, nil
	}

	group := im.pool.NewGroup()
	downloads := make([]*tasks.DownloadMediaTask, 0, len(items))
	for _, item := range items {
		target := im.claimTarget(item)
		task := tasks.NewDownloadMediaTask(owner, item, target, im.downloader, im.store)
		downloads = append(downloads, task)
		if err := group.Go(ctx, task); err != nil {
			break
		}
	}

	err := group.Wait()

	for _, task := range downloads {
		if relErr := task.Item.Release(); relErr != nil {
			slog.Warn("Failed to remove downloaded file", "url", task.Item.URL(), "error", relErr)
		}
		if task.Err() == nil {
			task.Item.SetIdentifier(task.Identifier)
			continue
		}
		slog.Error("Failed to store media item", "owner", owner, "url", task.Item.URL(), "error", task.Err())
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return downloads, ctxErr
	}
	if err != nil && errors.Is(err, client.ErrUnauthorized) {
		return downloads, err
	}
	return downloads, nil
}

// claimTarget picks the store identifier for item. Distinct files whose
// names normalize alike ("IMG_0001.jpg", "IMG_0002.jpg") get a numeric
// suffix; the same URL always gets the same target.
func (im *Importer) claimTarget(item *media.Item) string {
	base := item.Identifier()
	for n := 1; ; n++ {
		id := base
		if n > 1 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		target := slug.Join(item.Kind().Prefix(), id)
		if im.targetFree(target, item.URL()) {
			im.claimed[target] = item.URL()
			return target
		}
	}
}

func (im *Importer) targetFree(target, sourceURL string) bool {
	if owner, ok := im.claimed[target]; ok {
		return owner == sourceURL
	}
	if im.mediaRepo == nil {
		return true
	}
	claimed, err := im.mediaRepo.IsIdentifierClaimed(target, sourceURL)
	if err != nil {
		slog.Warn("Failed to check media identifier", "identifier", target, "error", err)
		return true
	}
	return !claimed
}

func (im *Importer) rewrite(doc resources.Document, downloads []*tasks.DownloadMediaTask, result *Result) error {
	stored := make(map[*media.Item]bool, len(downloads))
	for _, task := range downloads {
		if task.Err() == nil {
			stored[task.Item] = true
			result.MediaStored++
		} else {
			result.MediaFailed++
		}
	}

	visit := im.opts.EmbedStyle.Visit()
	storedOnly := func(sel *goquery.Selection, item *media.Item) {
		if stored[item] {
			visit(sel, item)
		}
	}

	for _, kind := range media.Kinds {
		n, err := doc.RewriteMediaKind(kind, storedOnly)
		if err != nil {
			return fmt.Errorf("failed to rewrite %s embeds: %w", kind, err)
		}
		result.Rewritten += n
	}

	for _, selector := range im.opts.StripSelectors {
		n, err := doc.RewriteMatches(selector, func(sel *goquery.Selection) {
			sel.Remove()
		})
		if err != nil {
			return fmt.Errorf("failed to strip %q: %w", selector, err)
		}
		slog.Debug("Markup stripped", "identifier", doc.Identifier(), "selector", selector, "count", n)
	}

	return nil
}

func (im *Importer) createItems(ctx context.Context, doc resources.Document, identifier string) error {
	attributes, err := doc.Attributes()
	if err != nil {
		return err
	}

	err = im.store.CreateItem(ctx, strings.NewReader(doc.UpdatedContent()), attributes, identifier, store.Params{Extension: ".html"})
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	theme, ok := doc.(*resources.Theme)
	if !ok {
		return nil
	}

	css, err := theme.CSS()
	if err != nil {
		return err
	}
	if css == "" {
		return nil
	}

	err = im.store.CreateItem(ctx, strings.NewReader(css), nil, slug.Join(identifier, "style"), store.Params{Extension: ".css"})
	if err != nil {
		return fmt.Errorf("failed to create stylesheet: %w", err)
	}
	return nil
}

// record writes the outcome to the ledger, if there is one. Ledger failures
// are logged and do not fail the import.
func (im *Importer) record(doc resources.Document, result *Result, hash string, downloads []*tasks.DownloadMediaTask) {
	if im.documents == nil {
		return
	}

	raw := doc.Record()
	entry := database.Document{
		Kind:        string(doc.Kind()),
		SourceID:    result.SourceID,
		Identifier:  result.Identifier,
		Title:       cmp.Or(raw.String("title"), raw.String("name")),
		SourceURL:   raw.String("full_url"),
		ContentHash: hash,
		Status:      result.Status,
		Error:       result.Error,
	}

	if attributes, err := doc.Attributes(); err == nil {
		if data, err := json.Marshal(attributes); err == nil {
			entry.Attributes = string(data)
		}
	}

	id, err := im.documents.UpsertDocument(entry)
	if err != nil {
		slog.Error("Failed to record document", "identifier", result.Identifier, "error", err)
		return
	}

	if im.mediaRepo == nil {
		return
	}

	for _, task := range downloads {
		m := database.Media{
			DocumentID: id,
			Kind:       task.Item.Kind().String(),
			URL:        task.Item.URL(),
			Scale:      task.Item.Scale(),
			Identifier: task.Identifier,
			Extension:  task.Item.Extension(),
			Size:       task.Size,
			Status:     database.StatusImported,
			Attempts:   task.GetRetryCount() + 1,
		}
		if task.Err() != nil {
			m.Status = database.StatusFailed
			m.Error = task.Err().Error()
			m.Identifier = task.Item.Identifier()
		}
		if err := im.mediaRepo.UpsertMedia(m); err != nil {
			slog.Error("Failed to record media", "url", m.URL, "error", err)
		}
	}
}

func sourceID(doc resources.Document) string {
	return cmp.Or(doc.Record().String("id"), doc.Identifier())
}

func contentHash(raw *record.Raw) (string, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("failed to hash record: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// fatal reports errors that end the whole run.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, client.ErrUnauthorized) || ctx.Err() != nil
}
