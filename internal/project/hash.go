package project

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Digest is a SHA-256 value.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func (d Digest) IsZero() bool { return d == Digest{} }

// Combine hashes content followed by deps, in the given order.
func Combine(content Digest, deps ...Digest) Digest {
	h := NewHasher()
	h.Digest(content)
	for _, d := range deps {
		h.Digest(d)
	}
	return h.Sum()
}

// Hasher builds a digest from length-prefixed fields, so adjacent fields
// cannot run into each other.
type Hasher struct {
	h hash.Hash
}

func NewHasher() *Hasher { return &Hasher{h: sha256.New()} }

func (h *Hasher) String(s string) *Hasher {
	h.Uint64(uint64(len(s)))
	_, _ = h.h.Write([]byte(s))
	return h
}

func (h *Hasher) Bytes(b []byte) *Hasher {
	h.Uint64(uint64(len(b)))
	_, _ = h.h.Write(b)
	return h
}

func (h *Hasher) Uint64(v uint64) *Hasher {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.h.Write(buf[:])
	return h
}

func (h *Hasher) Digest(d Digest) *Hasher {
	_, _ = h.h.Write(d[:])
	return h
}

func (h *Hasher) Sum() Digest {
	var out Digest
	copy(out[:], h.h.Sum(nil))
	return out
}
