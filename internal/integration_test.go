package internal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dshills/gamerank/internal/bgg"
	"github.com/dshills/gamerank/internal/preset"
)

// skipUnlessIntegration skips the test unless GAMERANK_INTEGRATION=1.
func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("GAMERANK_INTEGRATION") != "1" {
		t.Skip("skipping integration test (set GAMERANK_INTEGRATION=1 to run)")
	}
}

func TestIntegrationFetchGloomhaven(t *testing.T) {
	skipUnlessIntegration(t)

	client := bgg.NewClient(bgg.Options{
		Token:          os.Getenv(preset.EnvToken),
		InitialBackoff: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d, err := client.Fetch(ctx, 174430)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if d.Weight < 3 || d.Weight > 5 {
		t.Errorf("weight = %v, expected a heavy game", d.Weight)
	}
	if d.IsExpansion {
		t.Error("Gloomhaven is not an expansion")
	}
	if !d.HasVersions {
		t.Error("Gloomhaven has several published versions")
	}
}
