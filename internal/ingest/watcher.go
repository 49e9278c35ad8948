package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cyberflux/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DatasetIndex keeps a cached listing of the CSV files in the data
// directory. An fsnotify watcher invalidates the cache whenever files
// appear, change or disappear, so the analyzer's file picker stays current
// without re-scanning on every request.
type DatasetIndex struct {
	mu      sync.RWMutex
	dir     string
	names   []string
	dirty   bool
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDatasetIndex scans dir and starts watching it. The directory is
// created if missing so a fresh deployment works out of the box.
func NewDatasetIndex(dir string) (*DatasetIndex, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	idx := &DatasetIndex{
		dir:     dir,
		dirty:   true,
		watcher: watcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go idx.run()

	logging.Ingest("dataset index watching %s", dir)
	return idx, nil
}

// List returns the sorted CSV file names currently in the data directory.
func (idx *DatasetIndex) List() []string {
	idx.mu.RLock()
	if !idx.dirty {
		names := idx.names
		idx.mu.RUnlock()
		return names
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.dirty {
		idx.names = scanCSVs(idx.dir)
		idx.dirty = false
	}
	return idx.names
}

// Close stops the watcher.
func (idx *DatasetIndex) Close() error {
	close(idx.stopCh)
	<-idx.doneCh
	return idx.watcher.Close()
}

func (idx *DatasetIndex) run() {
	defer close(idx.doneCh)
	for {
		select {
		case <-idx.stopCh:
			return
		case event, ok := <-idx.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".csv") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logging.IngestDebug("dataset change: %s %s", event.Op, filepath.Base(event.Name))
				idx.mu.Lock()
				idx.dirty = true
				idx.mu.Unlock()
			}
		case err, ok := <-idx.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryIngest).Error("dataset watcher: %v", err)
		}
	}
}

func scanCSVs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
