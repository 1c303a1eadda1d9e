package screening

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	childRefPrefix  = "cr_"
	childRefHexSize = 32
)

// childRefHasher pseudonymizes child identifiers (a national ID number, a
// clinic card number) with a keyed BLAKE2b hash. The same identifier always
// maps to the same reference under one key, so sessions of a child can be
// grouped without storing the identifier.
type childRefHasher struct {
	key []byte
}

func newChildRefHasher(key string) (*childRefHasher, error) {
	if len(key) < 16 {
		return nil, errors.New("child ID key must be at least 16 bytes")
	}
	if len(key) > blake2b.Size {
		return nil, errors.New("child ID key must be at most 64 bytes")
	}
	return &childRefHasher{key: []byte(key)}, nil
}

// Hash returns the pseudonymous reference for raw, ignoring surrounding
// whitespace and letter case.
func (h *childRefHasher) Hash(raw string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" {
		return "", ErrInvalidChildRef
	}

	mac, err := blake2b.New256(h.key)
	if err != nil {
		return "", err
	}
	mac.Write([]byte(normalized))
	sum := hex.EncodeToString(mac.Sum(nil))
	return childRefPrefix + sum[:childRefHexSize], nil
}
