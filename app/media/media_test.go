package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/blog-porter/app/record"
)

const birdURL = "http://posterous.com/getfile/files.posterous.com/ericgj/ZzcQak3Chsq7agpGLFWrDnEOsm2E6bxJtLw4Mg7f9aVbVAkCBq1KlG1sw4t3/afghanistan_bird_of_hope.jpg"

func decode(t *testing.T, s string) *record.Raw {
	t.Helper()
	raw, err := record.Decode([]byte(s))
	require.NoError(t, err)
	return raw
}

func TestItemIdentifier(t *testing.T) {
	item := NewItem(Image, "full", record.New().With("url", birdURL))

	assert.Equal(t, "afghanistan_bird_of_hope", item.Basename())
	assert.Equal(t, ".jpg", item.Extension())
	assert.Equal(t, "afghanistan_bird_of_hope-full", item.Identifier())

	item.SetIdentifier("/images/afghanistan_bird_of_hope-full/")
	assert.Equal(t, "/images/afghanistan_bird_of_hope-full/", item.Identifier())
}

func TestItemScaleInfixRemoved(t *testing.T) {
	item := NewItem(Image, "scaled500", record.New().With("url", "http://files.example.com/a/Photo.scaled500.JPG?x=1"))

	assert.Equal(t, "Photo", item.Basename())
	assert.Equal(t, ".JPG", item.Extension())
	assert.Equal(t, "photo-scaled-", item.Identifier())
}

func TestItemWithoutURL(t *testing.T) {
	item := NewItem(Image, "full", record.New())

	assert.Equal(t, "", item.Basename())
	assert.Equal(t, "", item.Extension())
	assert.Equal(t, "-full", item.Identifier())
}

func TestItemAttributes(t *testing.T) {
	raw := decode(t, `{
		"height": 279, "width": 399, "size": 34,
		"caption": "Rare bird's breeding ground found in Afghanistan",
		"url": "`+birdURL+`", "username": "ericgj", "post_id": 10454692
	}`)

	values, err := NewItem(Image, "full", raw).Attributes()
	require.NoError(t, err)

	assert.Equal(t, []string{"height", "width", "size", "caption", "posterous_url", "posterous_user", "posterous_post_id"}, values.Keys())
	assert.Equal(t, birdURL, values.Get("posterous_url"))
	assert.Equal(t, "ericgj", values.Get("posterous_user"))
	assert.Equal(t, json.Number("10454692"), values.Get("posterous_post_id"))
}

func TestItemSelector(t *testing.T) {
	item := NewItem(Image, "full", record.New().With("url", `http://x/a"b.jpg`))
	assert.Equal(t, `img[src="http://x/a\"b.jpg"]`, item.Selector())
}

func TestExtractEmpty(t *testing.T) {
	for _, body := range []string{`{}`, `{"media": []}`, `{"media": "nope"}`, `{"media": [{"images": []}]}`} {
		c := Extract(decode(t, body))
		for _, k := range Kinds {
			items, ok := c[k]
			assert.True(t, ok, "kind %s missing for %s", k, body)
			assert.Empty(t, items)
		}
	}
}

func TestExtractFlattensImagesInOrder(t *testing.T) {
	raw := decode(t, `{"media": [
		{"audio_files": [{"url": "http://x/a.mp3"}]},
		{"images": [
			{"full": {"url": "http://x/one.jpg"}, "scaled500": {"url": "http://x/one.scaled500.jpg"}},
			{"scaled500": {"url": "http://x/two.scaled500.jpg"}, "full": {"url": "http://x/two.jpg"}}
		]},
		{"videos": []},
		{"unknown": [1, 2, 3]}
	]}`)

	c := Extract(raw)
	images := c.Items(Image)
	require.Len(t, images, 4)

	var got []string
	for _, item := range images {
		got = append(got, item.Identifier())
	}
	assert.Equal(t, []string{"one-full", "one-scaled-", "two-scaled-", "two-full"}, got)
	assert.Empty(t, c.Items(Audio))
	assert.Empty(t, c.Items(Video))
	assert.Equal(t, got, c.Identifiers(Image))
	assert.Len(t, c.All(), 4)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("audio_files")
	require.NoError(t, err)
	assert.Equal(t, Audio, k)

	k, err = ParseKind("images")
	require.NoError(t, err)
	assert.Equal(t, Image, k)

	_, err = ParseKind("gifs")
	assert.Error(t, err)
}

func TestHTTPDownloader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "blog-porter-test", r.Header.Get("User-Agent"))
		w.Write([]byte("JPEGDATA"))
	}))
	defer server.Close()

	d := NewHTTPDownloader(server.Client(), "blog-porter-test", 5*time.Second, t.TempDir())

	t.Run("to temp file", func(t *testing.T) {
		item := NewItem(Image, "full", record.New().With("url", server.URL+"/photo.jpg"))

		f, err := item.Content(context.Background(), d, nil)
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "JPEGDATA", string(data))

		again, err := item.Content(context.Background(), d, nil)
		require.NoError(t, err)
		assert.Same(t, f, again)
	})

	t.Run("to destination", func(t *testing.T) {
		dst, err := os.CreateTemp(t.TempDir(), "dst-*")
		require.NoError(t, err)
		defer dst.Close()

		f, err := d.Download(context.Background(), server.URL+"/photo.jpg", dst)
		require.NoError(t, err)
		assert.Same(t, dst, f)
	})

	t.Run("release removes temp file", func(t *testing.T) {
		item := NewItem(Image, "full", record.New().With("url", server.URL+"/photo.jpg"))

		f, err := item.Content(context.Background(), d, nil)
		require.NoError(t, err)

		require.NoError(t, item.Release())
		_, err = os.Stat(f.Name())
		assert.True(t, os.IsNotExist(err))
		assert.NoError(t, item.Release())
	})

	t.Run("release keeps destination", func(t *testing.T) {
		dst, err := os.CreateTemp(t.TempDir(), "dst-*")
		require.NoError(t, err)
		defer dst.Close()

		item := NewItem(Image, "full", record.New().With("url", server.URL+"/photo.jpg"))
		_, err = item.Content(context.Background(), d, dst)
		require.NoError(t, err)

		require.NoError(t, item.Release())

		data, err := os.ReadFile(dst.Name())
		require.NoError(t, err)
		assert.Equal(t, "JPEGDATA", string(data))

		_, err = dst.Seek(0, io.SeekStart)
		assert.NoError(t, err, "destination must stay open")
	})

	t.Run("http error", func(t *testing.T) {
		_, err := d.Download(context.Background(), server.URL+"/missing.jpg", nil)
		require.Error(t, err)

		var dlErr *DownloadError
		require.True(t, errors.As(err, &dlErr))
		assert.Equal(t, http.StatusNotFound, dlErr.StatusCode)
	})
}
