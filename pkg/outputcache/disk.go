package outputcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Disk persists entries as one JSON file per key. Suited to single
// node deployments that want cached pages to survive restarts.
type Disk struct {
	dir string
	now func() time.Time
}

// NewDisk creates the directory if needed and returns a disk store.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("outputcache: create dir: %w", err)
	}
	return &Disk{dir: dir, now: time.Now}, nil
}

func (d *Disk) path(key string) string {
	safe := strings.NewReplacer("/", "_", ":", "_").Replace(key)
	return filepath.Join(d.dir, safe+".json")
}

func (d *Disk) Get(ctx context.Context, key string) (Entry, error) {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, ErrMiss
		}
		return Entry{}, fmt.Errorf("outputcache: read: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt envelope reads as a miss; the next Put repairs it.
		os.Remove(d.path(key))
		return Entry{}, ErrMiss
	}
	if entry.Expired(d.now()) {
		os.Remove(d.path(key))
		return Entry{}, ErrMiss
	}
	return entry, nil
}

func (d *Disk) Put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("outputcache: marshal: %w", err)
	}

	// Write-then-rename keeps readers from seeing partial files.
	tmp := d.path(entry.Key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("outputcache: write: %w", err)
	}
	if err := os.Rename(tmp, d.path(entry.Key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("outputcache: rename: %w", err)
	}
	return nil
}

func (d *Disk) Delete(ctx context.Context, key string) error {
	err := os.Remove(d.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("outputcache: delete: %w", err)
	}
	return nil
}

// Sweep removes expired entries eagerly. Call it periodically; Get
// already treats expired files as misses, so sweeping only reclaims
// disk space.
func (d *Disk) Sweep(ctx context.Context) (removed int, err error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.json"))
	if err != nil {
		return 0, err
	}
	now := d.now()
	for _, path := range matches {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if json.Unmarshal(data, &entry) != nil || entry.Expired(now) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
