package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"imageserver/internal/domain"
	"imageserver/internal/infra"
)

// unspecToken encodes an unspecified dimension in a cache entry name. A
// distinct token keeps "unspecified" from colliding with an explicit 0, which
// is a valid (if degenerate) request.
const unspecToken = "UNSPEC"

// Cache is the on-disk rendition cache. Entries are addressed by a
// deterministic name derived from the identifier and the requested rendition
// parameters; they are only ever created or deleted wholesale per identifier,
// never updated in place.
type Cache struct {
	dir    string
	logger infra.Logger
}

// NewCache ensures the cache directory exists and returns a Cache over it.
func NewCache(cfg *infra.Config, logger infra.Logger) (*Cache, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: ensure directory: %w", err)
	}
	return &Cache{dir: cfg.CacheDir, logger: logger}, nil
}

func dimToken(d domain.Dim) string {
	if !d.Set {
		return unspecToken
	}
	return strconv.Itoa(d.Value)
}

// EntryPath maps (id, width, height, quality) to the cache file that would
// hold the rendition. It is a pure function of its arguments.
func (c *Cache) EntryPath(id uuid.UUID, width, height domain.Dim, quality int) string {
	name := fmt.Sprintf("%s-%sx%s-%d%s", id, dimToken(width), dimToken(height), quality, domain.RenditionExt)
	return filepath.Join(c.dir, name)
}

// Exists reports whether a cached rendition is present. It is advisory only:
// a miss does not exclude a concurrent writer for the same entry.
func (c *Cache) Exists(id uuid.UUID, width, height domain.Dim, quality int) bool {
	_, err := os.Stat(c.EntryPath(id, width, height, quality))
	return err == nil
}

// WriteEntry persists rendition bytes under the entry's deterministic name.
// Concurrent writers for the same entry produce byte-identical output, so
// last-writer-wins is acceptable.
func (c *Cache) WriteEntry(id uuid.UUID, width, height domain.Dim, quality int, data []byte) error {
	path := c.EntryPath(id, width, height, quality)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cache: write entry: %w", err)
	}
	return nil
}

// Invalidate removes every cache entry belonging to the identifier. Entries
// already gone are tolerated; any other removal error is surfaced. The linear
// directory scan is deliberate: invalidation is authorization-gated and
// infrequent, and never sits on the hot read path.
func (c *Cache) Invalidate(id uuid.UUID) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("cache: read directory: %w", err)
	}
	prefix := id.String()
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cache: remove entry %s: %w", path, err)
		}
		c.logger.Info().Str("id", prefix).Msgf("invalidated cache entry %s", entry.Name())
	}
	return nil
}

// Purge removes every entry in the cache and returns how many were deleted.
func (c *Cache) Purge() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("cache: read directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("cache: remove entry %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// Status summarizes the cache contents for operators.
type Status struct {
	Entries      int            `json:"entries"`
	TotalBytes   int64          `json:"total_bytes"`
	WidthCount   map[string]int `json:"width_count"`
	HeightCount  map[string]int `json:"height_count"`
	QualityCount map[string]int `json:"quality_count"`
}

// Status walks the cache directory and aggregates entry counts by rendition
// parameter. Files whose names do not parse as cache entries are logged and
// skipped.
func (c *Cache) Status() (*Status, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("cache: read directory: %w", err)
	}
	st := &Status{
		WidthCount:   map[string]int{},
		HeightCount:  map[string]int{},
		QualityCount: map[string]int{},
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		width, height, quality, err := parseEntryName(entry.Name())
		if err != nil {
			c.logger.Warn().Err(err).Msgf("unrecognized cache file %s", entry.Name())
			continue
		}
		info, err := entry.Info()
		if err != nil {
			c.logger.Warn().Err(err).Msgf("unable to stat cache file %s", entry.Name())
			continue
		}
		st.Entries++
		st.TotalBytes += info.Size()
		st.WidthCount[width]++
		st.HeightCount[height]++
		st.QualityCount[quality]++
	}
	return st, nil
}

// parseEntryName splits "<uuid>-<W>x<H>-<Q><ext>" into its rendition
// parameters. The identifier itself contains dashes, so the name is split from
// the right.
func parseEntryName(name string) (width, height, quality string, err error) {
	stem, ok := strings.CutSuffix(name, domain.RenditionExt)
	if !ok {
		return "", "", "", fmt.Errorf("missing %s extension", domain.RenditionExt)
	}
	qualityIdx := strings.LastIndex(stem, "-")
	if qualityIdx < 0 {
		return "", "", "", errors.New("missing quality segment")
	}
	quality = stem[qualityIdx+1:]
	rest := stem[:qualityIdx]
	dimIdx := strings.LastIndex(rest, "-")
	if dimIdx < 0 {
		return "", "", "", errors.New("missing dimension segment")
	}
	dims := rest[dimIdx+1:]
	if _, err := uuid.Parse(rest[:dimIdx]); err != nil {
		return "", "", "", fmt.Errorf("invalid identifier: %w", err)
	}
	width, height, ok = strings.Cut(dims, "x")
	if !ok {
		return "", "", "", errors.New("invalid dimension segment")
	}
	if _, err := strconv.Atoi(quality); err != nil {
		return "", "", "", fmt.Errorf("invalid quality: %w", err)
	}
	return width, height, quality, nil
}
