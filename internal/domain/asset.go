package domain

// Stage identifies which lifecycle directory holds an asset. An asset occupies
// at most one stage at a time; the Raw companion copy is tracked separately and
// is not a stage in the approval sense.
type Stage int

const (
	StagePending Stage = iota
	StageUnapproved
	StageOriginal
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageUnapproved:
		return "unapproved"
	case StageOriginal:
		return "original"
	}
	return "unknown"
}

const (
	// CanonicalExt is the single on-disk format assets are stored in,
	// regardless of the upload's original format.
	CanonicalExt = ".jpg"

	// RenditionExt is the format of served and cached renditions.
	RenditionExt = ".jpg"

	// CanonicalQuality is the encode quality used when persisting an asset
	// into a stage directory (upload and rotate).
	CanonicalQuality = 80

	// DefaultQuality is the rendition quality used when a request leaves it
	// unspecified. It is part of the cache key derivation.
	DefaultQuality = 100
)

// Dim is an optionally-specified rendition dimension. The zero value means
// "unspecified", which is distinct from an explicit 0 request.
type Dim struct {
	Value int
	Set   bool
}

// SomeDim returns a Dim carrying an explicit value.
func SomeDim(v int) Dim {
	return Dim{Value: v, Set: true}
}
