package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) record(files []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, files)
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func TestFileWatcher_ReportsTargetChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "needs.json")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	rec := &recorder{}
	fw, err := NewFileWatcher([]string{target}, 50*time.Millisecond, nil, rec.record)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte(`{"TYPE_A": {}}`), 0o644))
	require.NoError(t, os.WriteFile(target, []byte(`{"TYPE_B": {}}`), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 2*time.Second, 20*time.Millisecond)

	abs, _ := filepath.Abs(target)
	for _, call := range rec.snapshot() {
		for _, f := range call {
			got, _ := filepath.Abs(f)
			assert.Equal(t, abs, got)
		}
	}
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "needs.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	fw, err := NewFileWatcher([]string{target}, 0, nil, func([]string) {})
	require.NoError(t, err)
	require.NoError(t, fw.Start())

	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}

func TestNewFileWatcher_NoPaths(t *testing.T) {
	_, err := NewFileWatcher(nil, time.Second, nil, func([]string) {})
	assert.Error(t, err)
}

func TestDebouncer_CoalescesChanges(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(50 * time.Millisecond)
	d.SetCallback(rec.record)

	d.Add("b.json")
	d.Add("a.json")
	d.Add("b.json")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a.json", "b.json"}, rec.snapshot()[0])
}

func TestDebouncer_Stop(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer(30 * time.Millisecond)
	d.SetCallback(rec.record)

	d.Add("a.json")
	d.Stop()
	d.Add("b.json")

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
