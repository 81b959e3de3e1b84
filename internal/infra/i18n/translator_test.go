//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: hola\nwelcome_user: hola %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "hola" {
			t.Errorf("wanted 'hola', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" || translator.Has("nonexistent_key") {
			t.Errorf("wanted the key back, got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Luna"); got != "hola Luna" {
			t.Errorf("wanted 'hola Luna', got '%s'", got)
		}
	})
}

func TestCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/es.yaml": {Data: []byte("hi: hola")},
		"locales/en.yaml": {Data: []byte("hi: hello")},
	}
	c, err := NewCatalog(fsys, "es", "en")
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	testCases := []struct {
		header string
		want   string
	}{
		{"", "hola"},
		{"en-US,en;q=0.9", "hello"},
		{"fr-FR, en;q=0.5", "hello"},
		{"de", "hola"},
	}
	for _, tc := range testCases {
		t.Run("should pick a language for "+tc.header, func(t *testing.T) {
			if got := c.For(tc.header).T("hi"); got != tc.want {
				t.Errorf("wanted '%s', got '%s'", tc.want, got)
			}
		})
	}

	t.Run("should load the embedded locales with the same keys", func(t *testing.T) {
		emb, err := NewCatalog(LocalesFS, "es", "en")
		if err != nil {
			t.Fatalf("NewCatalog failed: %v", err)
		}
		es, en := emb.For("es"), emb.For("en")
		for k := range es.translations {
			if !en.Has(k) {
				t.Errorf("key %q missing in en", k)
			}
		}
	})

	t.Run("should fail on a missing language", func(t *testing.T) {
		if _, err := NewCatalog(fsys, "es", "pt"); err == nil {
			t.Error("expected an error")
		}
	})
}
