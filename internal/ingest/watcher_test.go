package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, paths <-chan string, want int, deadline time.Duration) map[string]struct{} {
	t.Helper()
	got := map[string]struct{}{}
	timeout := time.After(deadline)
	for len(got) < want {
		select {
		case p, ok := <-paths:
			if !ok {
				return got
			}
			got[p] = struct{}{}
		case <-timeout:
			return got
		}
	}
	return got
}

func TestWatcherDeliversBurstUnderDebounce(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{root},
		Debounce: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	const n = 50
	for i := 0; i < n; i++ {
		name := filepath.Join(root, fmt.Sprintf("inv-%03d.pdf", i))
		require.NoError(t, os.WriteFile(name, []byte("%PDF-1.4"), 0o644))
	}

	got := collectEvents(t, paths, n, 5*time.Second)
	assert.NotEmpty(t, got)
	for p := range got {
		assert.Equal(t, ".pdf", filepath.Ext(p))
	}
}

func TestWatcherClosesCleanlyDuringBurst(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	paths, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{root},
		Debounce: time.Millisecond,
	})
	require.NoError(t, err)

	// keep events arriving while the watcher is being torn down
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			name := filepath.Join(root, fmt.Sprintf("burst-%03d.png", i))
			if err := os.WriteFile(name, []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	// both channels must close without panicking on in-flight sends
	deadline := time.After(5 * time.Second)
	for paths != nil || errs != nil {
		select {
		case _, ok := <-paths:
			if !ok {
				paths = nil
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case <-deadline:
			t.Fatal("channels did not close after cancellation")
		}
	}
}

func TestWatcherInitialScanEmitsExistingFiles(t *testing.T) {
	root := t.TempDir()
	vendorDir := filepath.Join(root, "acme")
	require.NoError(t, os.MkdirAll(vendorDir, 0o755))
	existing := filepath.Join(vendorDir, "seed.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("%PDF-1.4"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
	})
	require.NoError(t, err)

	got := collectEvents(t, paths, 1, 2*time.Second)
	_, ok := got[existing]
	assert.True(t, ok)
}
