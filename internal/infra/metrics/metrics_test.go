//go:build !integration

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("should expose service collectors after MustRegister", func(t *testing.T) {
		// Arrange
		MustRegister()
		MustRegister()
		IncStatusCache(" HIT ")
		SetDBConns(4, 1, 3, 10)

		// Act
		families, err := Registry.Gather()

		// Assert
		if err != nil {
			t.Fatalf("gather: %v", err)
		}
		found := map[string]bool{}
		for _, f := range families {
			found[f.GetName()] = true
		}
		for _, name := range []string{"storybook_status_cache_total", "storybook_db_conns", "go_goroutines"} {
			if !found[name] {
				t.Errorf("expected %s to be registered", name)
			}
		}
	})

	t.Run("should serve the text format", func(t *testing.T) {
		IncStatusCache("hit")
		rr := httptest.NewRecorder()
		Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

		if !strings.Contains(rr.Body.String(), `storybook_status_cache_total{result="hit"}`) {
			t.Errorf("expected the status cache counter in the output")
		}
	})
}
