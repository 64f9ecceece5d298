package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"uppercase", "Hello World", "hello-world"},
		{"trailing punctuation", "Dangerous virus! LOL!", "dangerous-virus-lol-"},
		{"apostrophe", "Rare bird's breeding ground found in Afghanistan", "rare-bird-s-breeding-ground-found-in-afghanistan"},
		{"digits", "photo 2012", "photo-"},
		{"digits inside", "a1b2c", "a-b-c"},
		{"underscore kept", "afghanistan_bird_of_hope-full", "afghanistan_bird_of_hope-full"},
		{"leading hyphens", "---abc", "-abc"},
		{"interior runs", "a -- b", "a-b"},
		{"non ascii", "café", "caf-"},
		{"non ascii run", "日本語", "-"},
		{"only hyphens", "-----", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Dangerous virus! LOL!",
		"  spaced   out  ",
		"ÄÖÜ mixed 123 __ --",
		"photo.scaled500-full",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeCharset(t *testing.T) {
	for _, in := range []string{"Tab\tand\nnewline", "emoji 🙂 here", "MiXeD_Case-99"} {
		for _, r := range Normalize(in) {
			ok := (r >= 'a' && r <= 'z') || r == '-' || r == '_'
			assert.True(t, ok, "unexpected rune %q in output for %q", r, in)
		}
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/posts/dangerous-virus-lol-/", Join("/posts/", "dangerous-virus-lol-"))
	assert.Equal(t, "/images/photo-full/", Join("/images/", "/photo-full/"))
	assert.Equal(t, "/", Join())
	assert.Equal(t, "/a/b/", Join("a//b"))
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"", "Dangerous virus! LOL!", "IMG_0001.jpg", "日本語", "---abc", "a -- b", "\xff\xfe"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
		if in != "" && once == "" {
			t.Fatalf("Normalize(%q) is empty", in)
		}
		if strings.Contains(once, "--") {
			t.Fatalf("Normalize(%q) = %q keeps a hyphen run", in, once)
		}
		for _, r := range once {
			if !(r >= 'a' && r <= 'z') && r != '-' && r != '_' {
				t.Fatalf("Normalize(%q) = %q contains %q", in, once, r)
			}
		}
	})
}
