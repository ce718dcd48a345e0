package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/talentmatch/talentmatch/internal/embedding"
	"github.com/talentmatch/talentmatch/internal/engine"
	"github.com/talentmatch/talentmatch/internal/extract"
	"github.com/talentmatch/talentmatch/internal/profile"
	"github.com/talentmatch/talentmatch/internal/scoring"
	"github.com/talentmatch/talentmatch/internal/storage"
)

const inboxCV = `John Smith
john.smith@example.com

Education
Bachelor of Engineering, Tech University
2012 - 2016

Experience
Software developer position at Example Corp
Shipped Go services with Docker and SQL on Linux hosts.
`

func newTestIngester(t *testing.T, dir string) (*Ingester, *engine.Engine) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	scorer, err := scoring.NewScorer(scoring.DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.NewEngine(store, embedding.NewMockEmbedder(32), scorer, engine.Config{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	in := NewIngester(dir, []string{".txt"}, extract.NewExtractor(), profile.NewParser(), eng,
		WithDebounce(50*time.Millisecond))
	return in, eng
}

func waitForCandidates(t *testing.T, eng *engine.Engine, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := eng.Stats(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if stats.Candidates >= want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d candidates", want)
}

func TestIngester_SweepExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "john.txt"), []byte(inboxCV), 0600); err != nil {
		t.Fatal(err)
	}

	in, eng := newTestIngester(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	waitForCandidates(t, eng, 1)
}

func TestIngester_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	in, eng := newTestIngester(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte(inboxCV), 0600); err != nil {
		t.Fatal(err)
	}
	waitForCandidates(t, eng, 1)
}

func TestIngester_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.bin"), []byte(inboxCV), 0600); err != nil {
		t.Fatal(err)
	}

	in, eng := newTestIngester(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer in.Stop()

	time.Sleep(200 * time.Millisecond)
	stats, err := eng.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Candidates != 0 {
		t.Errorf("non-matching extension ingested, candidates=%d", stats.Candidates)
	}
}

func TestIngester_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does", "not", "exist")
	in, _ := newTestIngester(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	in.Stop()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("inbox dir not created: %v", err)
	}
}
