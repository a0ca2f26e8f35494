package inbox

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/lexikon/internal/storage"
)

func testEnv(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "inbox"), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func count(t *testing.T, store *storage.FS, dir string) int {
	t.Helper()
	metas, err := store.List(dir)
	if err != nil {
		return 0
	}
	return len(metas)
}

func TestDrainMovesFiles(t *testing.T) {
	_, store := testEnv(t)
	_ = store.Write("inbox/a.json", []byte(`[]`))
	_ = store.Write("inbox/b.json", []byte(`bad`))
	_ = store.Write("inbox/notes.txt", []byte(`ignored`))

	var seen []string
	n, err := Drain(context.Background(), store, "inbox", quietLogger(), func(_ context.Context, p string, data []byte) error {
		seen = append(seen, p)
		if string(data) == "bad" {
			return errors.New("malformed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 2 {
		t.Errorf("handled = %d, want 2", n)
	}
	if len(seen) != 2 || seen[0] != "inbox/a.json" || seen[1] != "inbox/b.json" {
		t.Errorf("seen = %v", seen)
	}
	if got := count(t, store, "inbox/done"); got != 1 {
		t.Errorf("done = %d, want 1", got)
	}
	if got := count(t, store, "inbox/failed"); got != 1 {
		t.Errorf("failed = %d, want 1", got)
	}

	n, _ = Drain(context.Background(), store, "inbox", quietLogger(), func(context.Context, string, []byte) error {
		t.Error("processed files must not be handled again")
		return nil
	})
	if n != 0 {
		t.Errorf("second drain handled %d files", n)
	}
}

func TestWatchHandlesNewFile(t *testing.T) {
	root, store := testEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var handled []string
	go Watch(ctx, store, "inbox", quietLogger(), func(_ context.Context, p string, _ []byte) error {
		mu.Lock()
		handled = append(handled, p)
		mu.Unlock()
		return nil
	})

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(root, "inbox", "batch.json"), []byte(`[]`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 1 && handled[0] == "inbox/batch.json"
	}, "batch file not handled by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return count(t, store, "inbox/done") == 1
	}, "batch file not moved to done/")
}
