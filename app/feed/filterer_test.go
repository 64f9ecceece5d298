package feed

import (
	"testing"

	"github.com/lysyi3m/blog-porter/app/record"
)

func testRecord(title, body, link string, tags ...string) *record.Raw {
	tagList := make([]any, 0, len(tags))
	for _, tag := range tags {
		tagList = append(tagList, record.New().With("name", tag))
	}
	return record.New().
		With("title", title).
		With("body", body).
		With("body_full", body).
		With("full_url", link).
		With("author", "jane@example.com (Jane)").
		With("tags", tagList)
}

func titles(records []*record.Raw) []string {
	out := make([]string, 0, len(records))
	for _, raw := range records {
		out = append(out, raw.String("title"))
	}
	return out
}

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()
	records := []*record.Raw{testRecord("One", "", ""), testRecord("Two", "", "")}

	kept := filterer.Run(records, &Config{Name: "test"})
	if len(kept) != 2 {
		t.Errorf("Expected all records kept, got %d", len(kept))
	}
}

func TestFilterer_IncludeAndExclude(t *testing.T) {
	filterer := NewFilterer()
	records := []*record.Raw{
		testRecord("Go release notes", "", ""),
		testRecord("Go sponsored post", "", ""),
		testRecord("Rust release notes", "", ""),
	}
	config := &Config{
		Name: "test",
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"go"}, Excludes: []string{"sponsored"}},
		},
	}

	got := titles(filterer.Run(records, config))
	if len(got) != 1 || got[0] != "Go release notes" {
		t.Errorf("Expected only 'Go release notes', got %v", got)
	}
}

func TestFilterer_Fields(t *testing.T) {
	filterer := NewFilterer()
	raw := testRecord("Title", "<p>Body text</p>", "https://example.com/post", "Travel", "Photos")

	tests := []struct {
		field string
		want  string
	}{
		{"title", "Title"},
		{"description", "<p>Body text</p>"},
		{"content", "<p>Body text</p>"},
		{"link", "https://example.com/post"},
		{"authors", "jane@example.com (Jane)"},
		{"categories", "Travel Photos"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		if got := filterer.getFieldValue(raw, tt.field); got != tt.want {
			t.Errorf("getFieldValue(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestFilterer_CategoriesCaseInsensitive(t *testing.T) {
	filterer := NewFilterer()
	records := []*record.Raw{
		testRecord("A", "", "", "travel"),
		testRecord("B", "", "", "work"),
	}
	config := &Config{
		Name:    "test",
		Filters: []ConfigFilter{{Field: "categories", Includes: []string{"TRAVEL"}}},
	}

	got := titles(filterer.Run(records, config))
	if len(got) != 1 || got[0] != "A" {
		t.Errorf("Expected only 'A', got %v", got)
	}
}

func TestFilterer_PreservesOrder(t *testing.T) {
	filterer := NewFilterer()
	records := []*record.Raw{
		testRecord("keep 1", "", ""),
		testRecord("drop", "", ""),
		testRecord("keep 2", "", ""),
	}
	config := &Config{
		Name:    "test",
		Filters: []ConfigFilter{{Field: "title", Excludes: []string{"drop"}}},
	}

	got := titles(filterer.Run(records, config))
	if len(got) != 2 || got[0] != "keep 1" || got[1] != "keep 2" {
		t.Errorf("Expected [keep 1 keep 2], got %v", got)
	}
}
