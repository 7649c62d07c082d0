package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"imageserver/internal/domain"
	"imageserver/internal/infra"
	"imageserver/internal/storage"
	"imageserver/internal/transform"
)

// Service orchestrates the asset lifecycle: uploads, moderation transitions,
// rendition resolution and cache maintenance. Mutation operations are
// serialized per identifier; reads run concurrently.
type Service struct {
	store   *storage.Store
	cache   *storage.Cache
	backend transform.Backend
	logger  infra.Logger
	locks   *keyedMutex
	renders singleflight.Group
}

func New(store *storage.Store, cache *storage.Cache, backend transform.Backend, logger infra.Logger) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		backend: backend,
		logger:  logger,
		locks:   newKeyedMutex(),
	}
}

// Upload sniffs the payload format, optionally rotates it by a multiple of 90
// degrees, stores the canonical re-encoded copy in the pending stage together
// with a raw companion in the original format, and returns the new identifier.
func (s *Service) Upload(ctx context.Context, data []byte, angle int) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	if len(data) == 0 {
		return uuid.Nil, fmt.Errorf("%w: empty payload", domain.ErrUnsupportedFormat)
	}
	format, err := transform.Sniff(data)
	if err != nil {
		return uuid.Nil, err
	}
	if angle != 0 && !validAngle(angle) {
		return uuid.Nil, domain.ErrInvalidAngle
	}

	canonical, err := s.backend.Rotate(data, angle)
	if err != nil {
		s.logger.Error().Err(err).Int("angle", angle).Msg("upload encode failed")
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}

	id := uuid.New()
	if err := s.store.WriteRaw(id, format.Ext, data); err != nil {
		return uuid.Nil, err
	}
	if err := s.store.WritePending(id, canonical); err != nil {
		// The sweeper only follows raw companions of pending entries, so an
		// orphaned raw would never be reclaimed.
		if rerr := s.store.RemoveRaw(id); rerr != nil {
			s.logger.Error().Err(rerr).Str("id", id.String()).Msg("unable to remove raw companion of failed upload")
		}
		return uuid.Nil, err
	}
	s.logger.Info().Str("id", id.String()).Str("format", format.Name).Int("bytes", len(data)).Msg("stored pending upload")
	return id, nil
}

// Submit moves a pending asset into moderation.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, func() error {
		return s.store.Submit(id)
	})
}

// Approve promotes an asset to the publicly servable original stage. Cached
// renditions keyed to the identifier are invalidated as the final step.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, func() error {
		if err := s.store.Approve(id); err != nil {
			return err
		}
		return s.cache.Invalidate(id)
	})
}

// Unapprove demotes a public asset back into moderation and invalidates its
// cached renditions so they can no longer be served anonymously.
func (s *Service) Unapprove(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, func() error {
		if err := s.store.Unapprove(id); err != nil {
			return err
		}
		return s.cache.Invalidate(id)
	})
}

// Delete removes the asset from whichever stage holds it, defensively checking
// all three, then deletes its raw companion and cached renditions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, id, func() error {
		if err := s.store.Remove(id); err != nil {
			return err
		}
		if err := s.store.RemoveRaw(id); err != nil {
			return err
		}
		return s.cache.Invalidate(id)
	})
}

// Rotate re-encodes a submitted or approved asset in place, rotated clockwise
// by the given multiple of 90 degrees. The angle is validated before any I/O.
// The asset is fully loaded into memory, transformed, written to a temporary
// path and renamed over the original; cache invalidation is the final step.
func (s *Service) Rotate(ctx context.Context, id uuid.UUID, degrees int) error {
	if !validAngle(degrees) {
		return domain.ErrInvalidAngle
	}
	return s.mutate(ctx, id, func() error {
		stage, path, err := s.store.LocateStage(id, storage.ReviewedOnly)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("service: read asset %s: %w", id, err)
		}
		rotated, err := s.backend.Rotate(data, degrees)
		if err != nil {
			s.logger.Error().Err(err).Str("id", id.String()).Int("degrees", degrees).Msg("rotate failed")
			return fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
		}
		if err := s.store.Replace(stage, id, rotated); err != nil {
			return err
		}
		return s.cache.Invalidate(id)
	})
}

// Resolve produces rendition bytes for a read request. Approved assets are
// served through the rendition cache; assets still in moderation are rendered
// on the fly for authorized callers only and never touch the cache, since the
// cache namespace carries no authorization check on read. A missing asset and
// an unauthorized request for an unapproved one are indistinguishable to the
// caller.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, authorized bool, width, height, quality domain.Dim) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	q := domain.DefaultQuality
	if quality.Set {
		q = quality.Value
	}

	path, err := s.store.Locate(domain.StageOriginal, id)
	switch {
	case err == nil:
		return s.resolvePublic(id, path, width, height, q)
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	if !authorized {
		return nil, domain.ErrNotFound
	}
	path, err = s.store.Locate(domain.StageUnapproved, id)
	if err != nil {
		return nil, err
	}
	targetW, targetH, err := s.renderTarget(path, width, height)
	if err != nil {
		return nil, err
	}
	data, err := s.backend.Render(path, targetW, targetH, q)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id.String()).Msg("render of unapproved asset failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}
	return data, nil
}

// renderTarget substitutes the asset's native dimensions when the caller
// specified neither, making the request equivalent to "no resize". The cache
// key keeps the caller's original unspecified form.
func (s *Service) renderTarget(path string, width, height domain.Dim) (domain.Dim, domain.Dim, error) {
	if width.Set || height.Set {
		return width, height, nil
	}
	w, h, err := s.backend.Probe(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("dimension probe failed")
		return width, height, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}
	return domain.SomeDim(w), domain.SomeDim(h), nil
}

func (s *Service) resolvePublic(id uuid.UUID, path string, width, height domain.Dim, quality int) ([]byte, error) {
	entry := s.cache.EntryPath(id, width, height, quality)
	data, err := os.ReadFile(entry)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("service: read cache entry: %w", err)
	}

	// Concurrent misses for the same entry render once and share the result.
	out, err, _ := s.renders.Do(entry, func() (any, error) {
		targetW, targetH, err := s.renderTarget(path, width, height)
		if err != nil {
			return nil, err
		}
		rendered, err := s.backend.Render(path, targetW, targetH, quality)
		if err != nil {
			return nil, err
		}
		// A failed cache write degrades the next request to a re-render; it
		// does not fail this one.
		if err := s.cache.WriteEntry(id, width, height, quality, rendered); err != nil {
			s.logger.Warn().Err(err).Str("id", id.String()).Msg("unable to populate rendition cache")
		}
		return rendered, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("id", id.String()).Msg("render of approved asset failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}
	return out.([]byte), nil
}

// CacheStatus exposes cache aggregation to the admin surface.
func (s *Service) CacheStatus() (*storage.Status, error) {
	return s.cache.Status()
}

// CachePurge drops every cached rendition.
func (s *Service) CachePurge() (int, error) {
	return s.cache.Purge()
}

// CacheInvalidate drops every cached rendition for one identifier.
func (s *Service) CacheInvalidate(id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrInvalidID
	}
	return s.cache.Invalidate(id)
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == uuid.Nil {
		return domain.ErrInvalidID
	}
	s.locks.lock(id)
	defer s.locks.unlock(id)
	return fn()
}

func validAngle(degrees int) bool {
	return degrees > 0 && degrees < 360 && degrees%90 == 0
}
