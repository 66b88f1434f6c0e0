// Package auth verifies admin API keys. Keys are never stored in clear: the
// configuration holds their HMAC-SHA256 under a server-side pepper.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing or unknown key.
var ErrUnauthorized = errors.New("unauthorized")

// Hash returns the hex HMAC-SHA256 of key under pepper.
func Hash(pepper []byte, key string) string {
	return hex.EncodeToString(sum(pepper, key))
}

func sum(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// KeySet holds the accepted admin key hashes.
type KeySet struct {
	pepper []byte
	hashes [][]byte
}

// NewKeySet parses hex hashes produced by Hash.
func NewKeySet(pepper []byte, hexHashes []string) (*KeySet, error) {
	s := &KeySet{pepper: pepper}
	for i, h := range hexHashes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, errors.Wrapf(err, "key hash %d", i)
		}
		if len(b) != sha256.Size {
			return nil, errors.Errorf("key hash %d: want %d bytes, got %d", i, sha256.Size, len(b))
		}
		s.hashes = append(s.hashes, b)
	}
	return s, nil
}

// Len returns the number of accepted keys.
func (s *KeySet) Len() int {
	return len(s.hashes)
}

// Verify checks key against every stored hash in constant time.
func (s *KeySet) Verify(key string) error {
	if key == "" {
		return ErrUnauthorized
	}
	h := sum(s.pepper, key)
	ok := 0
	for _, stored := range s.hashes {
		ok |= subtle.ConstantTimeCompare(h, stored)
	}
	if ok != 1 {
		return ErrUnauthorized
	}
	return nil
}
