package types

import (
	"bytes"
	"encoding/hex"

	"github.com/google/uuid"
)

// GidSize is the storage width of a DDS entity identifier.
const GidSize = 16

// Gid identifies a DDS-level entity: a participant, a data reader or a
// data writer. The bytes are opaque; equality and ordering are defined
// over the raw byte sequence and nothing else.
type Gid [GidSize]byte

// GidFromBytes builds a Gid from raw bytes, zero-padding short input
// and truncating long input.
func GidFromBytes(b []byte) Gid {
	var g Gid
	copy(g[:], b)
	return g
}

// GidFromString parses a hex-encoded Gid as produced by String.
func GidFromString(s string) (Gid, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Gid{}, err
	}
	return GidFromBytes(b), nil
}

// NewGid returns a fresh random Gid.
func NewGid() Gid {
	return Gid(uuid.New())
}

func (g *Gid) Bytes() []byte {
	return g[:]
}

func (g Gid) String() string {
	return hex.EncodeToString(g[:])
}

// Short returns an abbreviated form for logs.
func (g Gid) Short() string {
	return hex.EncodeToString(g[:4])
}

// Less orders gids lexicographically by byte sequence.
func (g Gid) Less(o Gid) bool {
	return bytes.Compare(g[:], o[:]) < 0
}

func (g Gid) IsZero() bool {
	return g == Gid{}
}
