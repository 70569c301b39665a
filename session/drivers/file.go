package drivers

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat/session"
)

const (
	fileSuffix    = ".json"
	tempPrefix    = ".tmp-"
	fileDirPerms  = 0o755
	fileDataPerms = 0o644
)

// FileBackend implements session.Backend with one file per key in a
// directory. Files hold a session.Record so that deletes leave a tombstone
// and watchers can tell who wrote a file.
type FileBackend struct {
	dir    string
	source string
}

// NewFileBackend creates the directory if needed and returns a backend on it.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("file backend: empty dir")
	}
	if err := os.MkdirAll(dir, fileDirPerms); err != nil {
		return nil, errors.Wrap(err, "file backend: create dir")
	}
	return &FileBackend{dir: dir, source: uuid.NewString()}, nil
}

// Get implements session.Backend.
func (b *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	rec, found, err := b.read(key)
	if err != nil || !found || rec.Deleted {
		return "", false, err
	}
	return rec.Value, true, nil
}

// Set implements session.Backend.
func (b *FileBackend) Set(_ context.Context, key, value string) error {
	return b.write(session.Record{Key: key, Value: value})
}

// Delete implements session.Backend.
func (b *FileBackend) Delete(_ context.Context, key string) error {
	_, found, err := b.read(key)
	if err != nil || !found {
		return err
	}
	return b.write(session.Record{Key: key, Deleted: true})
}

// Watch implements session.Backend.
func (b *FileBackend) Watch(ctx context.Context, key string, fn func(session.Change)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "file backend: new watcher")
	}
	if err := watcher.Add(b.dir); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrap(err, "file backend: watch dir")
	}

	lastRev := ""
	if rec, found, err := b.read(key); err == nil && found {
		lastRev = rec.Rev
	}

	target := b.path(key)
	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-runCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if isTemp(event.Name) || filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				rec, found, err := b.read(key)
				if err != nil {
					log.Warn().Err(err).Str("component", "session").Str("key", key).Msg("file backend: read after change failed")
					continue
				}
				// A single rename can produce several events.
				if !found || rec.Rev == lastRev {
					continue
				}
				lastRev = rec.Rev
				if rec.Writer == b.source || runCtx.Err() != nil {
					continue
				}
				fn(rec.Change())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("component", "session").Str("key", key).Msg("file backend: watcher error")
			}
		}
	}()

	return cancel, nil
}

// Close implements session.Backend.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.QueryEscape(key)+fileSuffix)
}

func (b *FileBackend) read(key string) (session.Record, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return session.Record{}, false, nil
	}
	if err != nil {
		return session.Record{}, false, errors.Wrap(err, "file backend: read")
	}
	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Record{}, false, errors.Wrap(err, "file backend: decode record")
	}
	return rec, true, nil
}

// write replaces the key's file atomically so readers never see a partial
// record.
func (b *FileBackend) write(rec session.Record) error {
	rec.Writer = b.source
	rec.Rev = uuid.NewString()
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "file backend: encode record")
	}

	tmp, err := os.CreateTemp(b.dir, tempPrefix+"*")
	if err != nil {
		return errors.Wrap(err, "file backend: create temp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file backend: write temp")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file backend: close temp")
	}
	if err := os.Chmod(tmpName, fileDataPerms); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file backend: chmod")
	}
	if err := os.Rename(tmpName, b.path(rec.Key)); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file backend: rename")
	}
	return nil
}

// isTemp reports whether name is one of the backend's temporary files.
func isTemp(name string) bool {
	return strings.HasPrefix(filepath.Base(name), tempPrefix)
}

var _ session.Backend = (*FileBackend)(nil)
