package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imageserver/internal/domain"
	"imageserver/internal/infra"
)

func testConfig(t *testing.T) *infra.Config {
	t.Helper()
	base := t.TempDir()
	return &infra.Config{
		DataDir:          base,
		PendingDir:       filepath.Join(base, "pending"),
		UnapprovedDir:    filepath.Join(base, "unapproved"),
		OriginalDir:      filepath.Join(base, "originals"),
		RawDir:           filepath.Join(base, "raw"),
		CacheDir:         filepath.Join(base, "cache"),
		PendingRetention: time.Hour,
		SweepInterval:    time.Minute,
	}
}

func newTestStore(t *testing.T) (*Store, *infra.Config) {
	t.Helper()
	cfg := testConfig(t)
	store, err := NewStore(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	return store, cfg
}

func mustWritePending(t *testing.T, store *Store, id uuid.UUID) {
	t.Helper()
	if err := store.WritePending(id, []byte("payload")); err != nil {
		t.Fatalf("WritePending() error: %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	mustWritePending(t, store, id)

	if err := store.Submit(id); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if _, err := store.Locate(domain.StagePending, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Locate(pending) after submit = %v, want ErrNotFound", err)
	}
	if _, err := store.Locate(domain.StageUnapproved, id); err != nil {
		t.Fatalf("Locate(unapproved) after submit error: %v", err)
	}

	if err := store.Approve(id); err != nil {
		t.Fatalf("Approve() error: %v", err)
	}
	if _, err := store.Locate(domain.StageUnapproved, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Locate(unapproved) after approve = %v, want ErrNotFound", err)
	}
	if _, err := store.Locate(domain.StageOriginal, id); err != nil {
		t.Fatalf("Locate(original) after approve error: %v", err)
	}

	if err := store.Unapprove(id); err != nil {
		t.Fatalf("Unapprove() error: %v", err)
	}
	if _, err := store.Locate(domain.StageOriginal, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Locate(original) after unapprove = %v, want ErrNotFound", err)
	}
}

func TestApproveFromPending(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	mustWritePending(t, store, id)

	if err := store.Approve(id); err != nil {
		t.Fatalf("Approve() from pending error: %v", err)
	}
	if _, err := store.Locate(domain.StageOriginal, id); err != nil {
		t.Fatalf("Locate(original) error: %v", err)
	}
}

func TestTransitionsFailWithNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()

	for name, fn := range map[string]func(uuid.UUID) error{
		"Submit":    store.Submit,
		"Approve":   store.Approve,
		"Unapprove": store.Unapprove,
		"Remove":    store.Remove,
	} {
		if err := fn(id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s() on absent asset = %v, want ErrNotFound", name, err)
		}
	}
}

func TestMoveDetectsConflict(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	mustWritePending(t, store, id)
	if err := os.WriteFile(store.AssetPath(domain.StageUnapproved, id), []byte("dupe"), 0o644); err != nil {
		t.Fatalf("writing duplicate: %v", err)
	}

	if err := store.Submit(id); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Submit() with occupied destination = %v, want ErrConflict", err)
	}
}

func TestRemoveIsDefensive(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	// Simulate an invariant violation with the asset present in two stages.
	mustWritePending(t, store, id)
	if err := os.WriteFile(store.AssetPath(domain.StageOriginal, id), []byte("dupe"), 0o644); err != nil {
		t.Fatalf("writing duplicate: %v", err)
	}

	if err := store.Remove(id); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	for _, stage := range []domain.Stage{domain.StagePending, domain.StageUnapproved, domain.StageOriginal} {
		if _, err := store.Locate(stage, id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Locate(%s) after remove = %v, want ErrNotFound", stage, err)
		}
	}
	if err := store.Remove(id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Remove() = %v, want ErrNotFound", err)
	}
}

func TestLocateStagePriority(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	mustWritePending(t, store, id)

	if _, _, err := store.LocateStage(id, ReviewedOnly); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("LocateStage(ReviewedOnly) for pending asset = %v, want ErrNotFound", err)
	}
	stage, _, err := store.LocateStage(id, IncludeUnreviewed)
	if err != nil {
		t.Fatalf("LocateStage(IncludeUnreviewed) error: %v", err)
	}
	if stage != domain.StagePending {
		t.Fatalf("LocateStage() = %s, want pending", stage)
	}

	// With copies in both reviewed stages, unapproved wins.
	if err := os.WriteFile(store.AssetPath(domain.StageUnapproved, id), []byte("a"), 0o644); err != nil {
		t.Fatalf("writing unapproved copy: %v", err)
	}
	if err := os.WriteFile(store.AssetPath(domain.StageOriginal, id), []byte("b"), 0o644); err != nil {
		t.Fatalf("writing original copy: %v", err)
	}
	stage, _, err = store.LocateStage(id, ReviewedOnly)
	if err != nil {
		t.Fatalf("LocateStage() error: %v", err)
	}
	if stage != domain.StageUnapproved {
		t.Fatalf("LocateStage() = %s, want unapproved", stage)
	}
}

func TestReplaceLeavesNoTempFiles(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	mustWritePending(t, store, id)

	if err := store.Replace(domain.StagePending, id, []byte("rewritten")); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	data, err := os.ReadFile(store.AssetPath(domain.StagePending, id))
	if err != nil {
		t.Fatalf("reading replaced asset: %v", err)
	}
	if string(data) != "rewritten" {
		t.Fatalf("replaced content = %q, want %q", data, "rewritten")
	}
	entries, err := os.ReadDir(store.StageDir(domain.StagePending))
	if err != nil {
		t.Fatalf("reading pending dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("pending dir has %d entries after replace, want 1", len(entries))
	}
}

func TestRawCompanion(t *testing.T) {
	store, cfg := newTestStore(t)
	id := uuid.New()
	if err := store.WriteRaw(id, ".png", []byte("rawbytes")); err != nil {
		t.Fatalf("WriteRaw() error: %v", err)
	}
	if err := store.RemoveRaw(id); err != nil {
		t.Fatalf("RemoveRaw() error: %v", err)
	}
	entries, err := os.ReadDir(cfg.RawDir)
	if err != nil {
		t.Fatalf("reading raw dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("raw dir has %d entries after removal, want 0", len(entries))
	}
	// Removing an absent companion is not an error.
	if err := store.RemoveRaw(id); err != nil {
		t.Fatalf("RemoveRaw() on absent companion error: %v", err)
	}
}
