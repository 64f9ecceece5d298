package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lysyi3m/blog-porter/app/attrs"
	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/store"
)

// DownloadMediaTask fetches one media item and writes it to the store as a
// YAML sidecar holding its attributes plus the raw bytes.
type DownloadMediaTask struct {
	Task
	Item       *media.Item
	Identifier string
	Size       int64
	downloader media.Downloader
	store      store.Store
}

func NewDownloadMediaTask(owner string, item *media.Item, identifier string, downloader media.Downloader, st store.Store) *DownloadMediaTask {
	return &DownloadMediaTask{
		Task:       NewTask(TaskTypeDownloadMedia, owner),
		Item:       item,
		Identifier: identifier,
		downloader: downloader,
		store:      st,
	}
}

func (t *DownloadMediaTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.Item.URL() == "" {
		return Permanent(fmt.Errorf("media item has no url"))
	}

	f, err := t.Item.Content(ctx, t.downloader, nil)
	if err != nil {
		if !retryable(err) {
			return Permanent(err)
		}
		return err
	}

	attributes, err := t.Item.Attributes()
	if err != nil {
		return Permanent(fmt.Errorf("failed to map media attributes: %w", err))
	}

	err = t.store.CreateItem(ctx, strings.NewReader(""), attributes, t.Identifier, store.Params{Extension: ".yaml"})
	if err != nil {
		return fmt.Errorf("failed to store media attributes: %w", err)
	}

	if info, err := f.Stat(); err == nil {
		t.Size = info.Size()
	}

	err = t.store.CreateItem(ctx, f, attrs.NewValues(), t.Identifier, store.Params{Extension: t.Item.Extension()})
	if err != nil {
		return fmt.Errorf("failed to store media content: %w", err)
	}

	if err := t.Item.Release(); err != nil {
		slog.Warn("Failed to remove downloaded file", "url", t.Item.URL(), "error", err)
	}

	slog.Debug("Media stored", "owner", t.Owner, "identifier", t.Identifier, "url", t.Item.URL(), "bytes", t.Size)
	return nil
}

// retryable reports whether a failed download may succeed on another try.
// Client errors other than rate limiting will not.
func retryable(err error) bool {
	var de *media.DownloadError
	if !errors.As(err, &de) || de.StatusCode == 0 {
		return true
	}
	if de.StatusCode == http.StatusTooManyRequests || de.StatusCode == http.StatusRequestTimeout {
		return true
	}
	return de.StatusCode >= 500
}
