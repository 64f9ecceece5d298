package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/blog-porter/app/attrs"
)

var ErrInvalidIdentifier = errors.New("invalid item identifier")

// Params carries per-item creation options.
type Params struct {
	Extension string
}

// Store is the destination content tree items are created in.
type Store interface {
	CreateItem(ctx context.Context, content io.Reader, attributes *attrs.Values, identifier string, params Params) error
}

// StoredItem is an item read back from disk.
type StoredItem struct {
	Identifier string
	Path       string
	Attributes map[string]any
	Content    []byte
}

const siteConfig = `# Generated by blog-porter
text_extensions: [ 'css', 'erb', 'haml', 'htm', 'html', 'js', 'less', 'markdown', 'md', 'php', 'rb', 'sass', 'scss', 'txt', 'xhtml', 'xml', 'yaml' ]
output_dir: output
index_filenames: [ 'index.html' ]
data_sources:
  -
    type: filesystem_unified
    items_root: /
    layouts_root: /
`

const defaultLayout = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title><%= @item[:title] %></title>
  </head>
  <body>
    <%= yield %>
  </body>
</html>
`

// FileStore writes items into a nanoc-style site: content/<identifier><ext>.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Root() string {
	return s.root
}

// EnsureSite creates the site skeleton unless it already exists.
func (s *FileStore) EnsureSite() error {
	for _, dir := range []string{"content", "layouts"} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	files := map[string]string{
		"nanoc.yaml":           siteConfig,
		"layouts/default.html": defaultLayout,
	}
	for name, content := range files {
		path := filepath.Join(s.root, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		slog.Info("Site file created", "path", path)
	}

	return nil
}

// ItemPath maps an identifier such as /posts/hello/ to content/posts/hello.html.
func (s *FileStore) ItemPath(identifier, ext string) (string, error) {
	trimmed := strings.Trim(identifier, "/")
	if trimmed == "" {
		trimmed = "index"
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
		}
	}
	return filepath.Join(s.root, "content", filepath.FromSlash(trimmed)+ext), nil
}

// CreateItem writes one item. Sidecar .yaml items hold the attributes alone,
// other items with attributes get a YAML front matter block and items without
// attributes are copied verbatim.
func (s *FileStore) CreateItem(ctx context.Context, content io.Reader, attributes *attrs.Values, identifier string, params Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.ItemPath(identifier, params.Extension)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create item directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".item-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := writeItem(tmp, content, attributes, params.Extension)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write item %s: %w", identifier, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move item into place: %w", err)
	}

	slog.Debug("Item created", "identifier", identifier, "path", path, "bytes", n)
	return nil
}

func writeItem(w io.Writer, content io.Reader, attributes *attrs.Values, ext string) (int64, error) {
	if attributes == nil {
		attributes = attrs.NewValues()
	}

	var header bytes.Buffer
	if attributes.Len() > 0 || ext == ".yaml" {
		data, err := yaml.Marshal(attributes)
		if err != nil {
			return 0, fmt.Errorf("failed to encode attributes: %w", err)
		}
		if ext == ".yaml" {
			header.Write(data)
		} else {
			header.WriteString("---\n")
			header.Write(data)
			header.WriteString("---\n")
		}
	}

	n, err := w.Write(header.Bytes())
	if err != nil {
		return int64(n), err
	}
	if content == nil {
		return int64(n), nil
	}

	copied, err := io.Copy(w, content)
	return int64(n) + copied, err
}

// ReadItem loads an item back, splitting front matter from content.
func (s *FileStore) ReadItem(identifier, ext string) (*StoredItem, error) {
	path, err := s.ItemPath(identifier, ext)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item: %w", err)
	}

	item := &StoredItem{Identifier: identifier, Path: path, Attributes: map[string]any{}}
	if ext == ".yaml" {
		if err := yaml.Unmarshal(data, &item.Attributes); err != nil {
			return nil, fmt.Errorf("failed to parse attributes: %w", err)
		}
		return item, nil
	}

	if !bytes.HasPrefix(data, []byte("---")) {
		item.Content = data
		return item, nil
	}

	body, err := frontmatter.Parse(bytes.NewReader(data), &item.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}
	item.Content = body
	return item, nil
}

// DryRunStore logs items instead of writing them.
type DryRunStore struct{}

func (DryRunStore) CreateItem(ctx context.Context, content io.Reader, attributes *attrs.Values, identifier string, params Params) error {
	var n int64
	if content != nil {
		var err error
		n, err = io.Copy(io.Discard, content)
		if err != nil {
			return err
		}
	}
	slog.Info("Dry run: item not written", "identifier", identifier, "extension", params.Extension, "attributes", attributes.Keys(), "bytes", n)
	return nil
}
