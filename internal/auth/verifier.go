package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"imageserver/internal/infra"
)

// Verifier checks presented API keys against a set of argon2id hashes. The
// service only ever consumes the resulting yes/no decision; key management
// happens outside the process (hashes arrive through configuration).
type Verifier struct {
	hashes []argonHash
	logger infra.Logger
}

type argonHash struct {
	salt    []byte
	sum     []byte
	time    uint32
	memory  uint32
	threads uint8
}

// NewVerifier parses the given PHC-formatted argon2id strings
// ("$argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>"). At least one hash is
// required; a malformed hash is a configuration error.
func NewVerifier(encoded []string, logger infra.Logger) (*Verifier, error) {
	if len(encoded) == 0 {
		return nil, errors.New("auth: at least one api key hash is required")
	}
	v := &Verifier{logger: logger}
	for _, e := range encoded {
		h, err := parsePHC(e)
		if err != nil {
			return nil, fmt.Errorf("auth: parse api key hash: %w", err)
		}
		v.hashes = append(v.hashes, h)
	}
	return v, nil
}

// Verify reports whether the presented key matches any configured hash.
func (v *Verifier) Verify(key string) bool {
	for _, h := range v.hashes {
		sum := argon2.IDKey([]byte(key), h.salt, h.time, h.memory, h.threads, uint32(len(h.sum)))
		if subtle.ConstantTimeCompare(sum, h.sum) == 1 {
			return true
		}
	}
	v.logger.Warn().Msg("authentication failed for presented api key")
	return false
}

func parsePHC(encoded string) (argonHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return argonHash{}, errors.New("malformed hash string")
	}
	if parts[1] != "argon2id" {
		return argonHash{}, fmt.Errorf("unsupported algorithm %q", parts[1])
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return argonHash{}, errors.New("malformed version segment")
	}
	if version != argon2.Version {
		return argonHash{}, fmt.Errorf("unsupported argon2 version %d", version)
	}
	var h argonHash
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &threads); err != nil {
		return argonHash{}, errors.New("malformed parameter segment")
	}
	h.threads = uint8(threads)
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return argonHash{}, errors.New("malformed salt")
	}
	if h.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return argonHash{}, errors.New("malformed hash")
	}
	return h, nil
}
