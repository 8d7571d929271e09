// Package bronze lands raw upstream payloads as immutable, timestamp-keyed
// artifacts. An artifact is only ever visible in full: writes go to a
// temporary file and become visible atomically via rename.
package bronze

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sentinelops/weather-sentinel/internal/weather"
)

// ErrNoArtifacts is returned by Latest when nothing has been landed yet.
var ErrNoArtifacts = errors.New("no landing artifacts found")

// ArtifactRef identifies one landed artifact. Key doubles as the dedupe
// identity for downstream loads.
type ArtifactRef struct {
	Key       string    `json:"key"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Landing is the raw landing contract: atomic single-object put, verbatim
// read-back, and latest-artifact discovery.
type Landing interface {
	Land(payload []byte, fetchedAt time.Time, loc weather.Location) (ArtifactRef, error)
	Read(ref ArtifactRef) ([]byte, error)
	Latest() (ArtifactRef, error)
}

// FSLanding implements Landing on the local filesystem, laid out the same
// way the bucket is: {prefix}/YYYY/MM/DD/{HHMMSS}Z_{location}.json, all UTC.
type FSLanding struct {
	dir    string
	prefix string
}

// NewFSLanding creates a landing zone rooted at dir. Prefix defaults to
// "bronze/weather".
func NewFSLanding(dir, prefix string) *FSLanding {
	if prefix == "" {
		prefix = "bronze/weather"
	}
	return &FSLanding{dir: dir, prefix: prefix}
}

// Land writes payload verbatim under a key derived from fetchedAt and loc.
// The artifact appears all at once or not at all: content is written to a
// temporary file, synced, then renamed into place.
func (l *FSLanding) Land(payload []byte, fetchedAt time.Time, loc weather.Location) (ArtifactRef, error) {
	key := l.keyFor(fetchedAt, loc)
	path := filepath.Join(l.dir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ArtifactRef{}, fmt.Errorf("creating landing partition: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("creating landing temp file: %w", err)
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return ArtifactRef{}, fmt.Errorf("writing landing artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return ArtifactRef{}, fmt.Errorf("syncing landing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return ArtifactRef{}, fmt.Errorf("closing landing artifact: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ArtifactRef{}, fmt.Errorf("publishing landing artifact: %w", err)
	}

	return ArtifactRef{Key: key, FetchedAt: fetchedAt.UTC()}, nil
}

// Read returns the artifact's exact bytes.
func (l *FSLanding) Read(ref ArtifactRef) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, filepath.FromSlash(ref.Key)))
	if err != nil {
		return nil, fmt.Errorf("reading landing artifact %s: %w", ref.Key, err)
	}
	return data, nil
}

// Latest returns the lexicographically last artifact under the prefix.
// Lexicographic order matches ingestion order because keys embed the UTC
// partition path and time of day.
func (l *FSLanding) Latest() (ArtifactRef, error) {
	root := filepath.Join(l.dir, filepath.FromSlash(l.prefix))

	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, relErr := filepath.Rel(l.dir, path)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ArtifactRef{}, ErrNoArtifacts
		}
		return ArtifactRef{}, fmt.Errorf("listing landing artifacts: %w", err)
	}
	if len(keys) == 0 {
		return ArtifactRef{}, ErrNoArtifacts
	}

	sort.Strings(keys)
	key := keys[len(keys)-1]

	fetchedAt, err := ParseKeyTime(key)
	if err != nil {
		return ArtifactRef{}, err
	}
	return ArtifactRef{Key: key, FetchedAt: fetchedAt}, nil
}

func (l *FSLanding) keyFor(fetchedAt time.Time, loc weather.Location) string {
	ts := fetchedAt.UTC()
	return fmt.Sprintf("%s/%s/%sZ_%s.json",
		l.prefix,
		ts.Format("2006/01/02"),
		ts.Format("150405"),
		loc.Slug(),
	)
}

// ParseKeyTime recovers the ingestion timestamp from a key of the form
// {prefix}/YYYY/MM/DD/{HHMMSS}Z_{location}.json.
func ParseKeyTime(key string) (time.Time, error) {
	parts := strings.Split(key, "/")
	if len(parts) < 4 {
		return time.Time{}, fmt.Errorf("malformed artifact key: %s", key)
	}
	name := parts[len(parts)-1]
	clock, _, ok := strings.Cut(name, "_")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed artifact key: %s", key)
	}
	stamp := strings.Join(parts[len(parts)-4:len(parts)-1], "/") + "/" + clock
	ts, err := time.Parse("2006/01/02/150405Z", stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed artifact key %s: %w", key, err)
	}
	return ts.UTC(), nil
}
