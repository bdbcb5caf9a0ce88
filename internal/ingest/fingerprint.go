package ingest

import (
	"encoding/hex"
	"hash"
	"io"

	"github.com/minio/highwayhash"
)

// fixed so fingerprints are comparable across runs
var fingerprintKey = []byte("invoice-entities-fingerprint-key")

// NewHasher returns a 128-bit HighwayHash for streaming content through.
func NewHasher() hash.Hash {
	h, err := highwayhash.New128(fingerprintKey)
	if err != nil {
		// only fails for a key that is not 32 bytes
		panic(err)
	}
	return h
}

// Fingerprint hashes everything read from r.
func Fingerprint(r io.Reader) (string, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
