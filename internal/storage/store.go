package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"imageserver/internal/domain"
	"imageserver/internal/infra"
)

// LookupMode controls which stages LocateStage searches.
type LookupMode int

const (
	// ReviewedOnly searches Unapproved and Original.
	ReviewedOnly LookupMode = iota
	// IncludeUnreviewed additionally searches Pending, last.
	IncludeUnreviewed
)

// Store owns the lifecycle stage directories and the raw companion directory.
// All transitions between stages are single atomic renames, so a crash
// mid-transition leaves an asset in exactly one stage.
type Store struct {
	dirs   map[domain.Stage]string
	rawDir string
	logger infra.Logger
}

// NewStore ensures the stage directories exist and returns a Store over them.
func NewStore(cfg *infra.Config, logger infra.Logger) (*Store, error) {
	s := &Store{
		dirs: map[domain.Stage]string{
			domain.StagePending:    cfg.PendingDir,
			domain.StageUnapproved: cfg.UnapprovedDir,
			domain.StageOriginal:   cfg.OriginalDir,
		},
		rawDir: cfg.RawDir,
		logger: logger,
	}
	for _, dir := range []string{cfg.PendingDir, cfg.UnapprovedDir, cfg.OriginalDir, cfg.RawDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// StageDir returns the directory backing a stage.
func (s *Store) StageDir(stage domain.Stage) string {
	return s.dirs[stage]
}

// AssetPath builds the canonical path an asset with the given id would occupy
// in the given stage. It does not check existence.
func (s *Store) AssetPath(stage domain.Stage, id uuid.UUID) string {
	return filepath.Join(s.dirs[stage], id.String()+domain.CanonicalExt)
}

// Locate returns the path of the asset in the given stage, or
// domain.ErrNotFound if the stage does not hold it. It never scans.
func (s *Store) Locate(stage domain.Stage, id uuid.UUID) (string, error) {
	path := s.AssetPath(stage, id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return path, nil
}

// LocateStage searches the stages in fixed priority order (Unapproved, then
// Original, then Pending if the mode includes unreviewed assets) and returns
// the first stage holding the asset. The order only matters when the
// one-stage-per-asset invariant has been violated; it determines which copy is
// reported while debugging such a state.
func (s *Store) LocateStage(id uuid.UUID, mode LookupMode) (domain.Stage, string, error) {
	order := []domain.Stage{domain.StageUnapproved, domain.StageOriginal}
	if mode == IncludeUnreviewed {
		order = append(order, domain.StagePending)
	}
	for _, stage := range order {
		path, err := s.Locate(stage, id)
		if err == nil {
			return stage, path, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return 0, "", err
		}
	}
	return 0, "", domain.ErrNotFound
}

// move renames the asset from one stage directory to another. It fails with
// domain.ErrNotFound when the source stage does not hold the asset and with
// domain.ErrConflict when the destination stage already does.
func (s *Store) move(from, to domain.Stage, id uuid.UUID) error {
	src, err := s.Locate(from, id)
	if err != nil {
		return err
	}
	dst := s.AssetPath(to, id)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s present in both %s and %s", domain.ErrConflict, id, from, to)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: stat %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("storage: move %s from %s to %s: %w", id, from, to, err)
	}
	s.logger.Info().Str("id", id.String()).Msgf("moved asset from %s to %s", from, to)
	return nil
}

// Submit moves a pending asset into the unapproved stage.
func (s *Store) Submit(id uuid.UUID) error {
	return s.move(domain.StagePending, domain.StageUnapproved, id)
}

// Approve promotes an asset into the original stage. Both unapproved and
// pending assets may be approved; unapproved is tried first.
func (s *Store) Approve(id uuid.UUID) error {
	err := s.move(domain.StageUnapproved, domain.StageOriginal, id)
	if errors.Is(err, domain.ErrNotFound) {
		return s.move(domain.StagePending, domain.StageOriginal, id)
	}
	return err
}

// Unapprove demotes an approved asset back into the unapproved stage.
func (s *Store) Unapprove(id uuid.UUID) error {
	return s.move(domain.StageOriginal, domain.StageUnapproved, id)
}

// Remove deletes the asset from every stage directory, tolerating absence in
// each so that an invariant-violating duplicate is repaired rather than left
// behind. It returns domain.ErrNotFound when no stage held the asset and fails
// on any other I/O error.
func (s *Store) Remove(id uuid.UUID) error {
	removed := false
	for _, stage := range []domain.Stage{domain.StagePending, domain.StageUnapproved, domain.StageOriginal} {
		path := s.AssetPath(stage, id)
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = true
			s.logger.Info().Str("id", id.String()).Msgf("deleted asset from %s", stage)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("storage: remove %s: %w", path, err)
		}
	}
	if !removed {
		return domain.ErrNotFound
	}
	return nil
}

// WritePending persists freshly uploaded canonical bytes into the pending stage.
func (s *Store) WritePending(id uuid.UUID, data []byte) error {
	path := s.AssetPath(domain.StagePending, id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write pending asset: %w", err)
	}
	return nil
}

// Replace overwrites the asset's backing file in its current stage by writing
// to a temporary path in the same directory and renaming over the original.
// Callers must have fully loaded the previous contents before calling; the
// rename keeps readers from ever observing a partial file.
func (s *Store) Replace(stage domain.Stage, id uuid.UUID, data []byte) error {
	path := s.AssetPath(stage, id)
	tmp, err := os.CreateTemp(s.dirs[stage], "."+id.String()+".*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: replace %s: %w", path, err)
	}
	return nil
}

// WriteRaw stores the original upload bytes as a companion copy, kept for
// future re-processing without generational quality loss.
func (s *Store) WriteRaw(id uuid.UUID, ext string, data []byte) error {
	path := filepath.Join(s.rawDir, id.String()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write raw companion: %w", err)
	}
	return nil
}

// RemoveRaw deletes the raw companion of the asset, matched by identifier
// prefix since the companion keeps its original upload extension. A missing
// companion is not an error.
func (s *Store) RemoveRaw(id uuid.UUID) error {
	entries, err := os.ReadDir(s.rawDir)
	if err != nil {
		return fmt.Errorf("storage: read raw directory: %w", err)
	}
	prefix := id.String()
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(s.rawDir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: remove raw companion %s: %w", path, err)
		}
		s.logger.Info().Str("id", id.String()).Msg("deleted raw companion")
		return nil
	}
	return nil
}
