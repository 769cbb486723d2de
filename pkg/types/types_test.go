package types_test

import (
	"testing"

	"github.com/sambigeara/ddsgraph/pkg/types"
)

func TestGidEqualityAndOrdering(t *testing.T) {
	a := types.GidFromBytes([]byte{1})
	b := types.GidFromBytes([]byte{1})
	c := types.GidFromBytes([]byte{2})

	if a != b {
		t.Fatal("gids with equal bytes must compare equal")
	}
	if a == c {
		t.Fatal("gids with different bytes must not compare equal")
	}
	if !a.Less(c) || c.Less(a) {
		t.Fatal("ordering must follow byte comparison")
	}
}

func TestGidStringRoundTrip(t *testing.T) {
	g := types.NewGid()

	parsed, err := types.GidFromString(g.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != g {
		t.Fatalf("round trip mismatch: %s != %s", parsed, g)
	}

	if _, err := types.GidFromString("not-hex"); err == nil {
		t.Fatal("expected parse error for invalid hex")
	}
}

func TestGidZero(t *testing.T) {
	var g types.Gid
	if !g.IsZero() {
		t.Fatal("zero value must report IsZero")
	}
	if types.NewGid().IsZero() {
		t.Fatal("random gid must not be zero")
	}
}

func TestNewGidUnique(t *testing.T) {
	seen := make(map[types.Gid]struct{})
	for range 100 {
		g := types.NewGid()
		if _, ok := seen[g]; ok {
			t.Fatalf("duplicate gid generated: %s", g)
		}
		seen[g] = struct{}{}
	}
}

func TestGidFromBytesPadsAndTruncates(t *testing.T) {
	short := types.GidFromBytes([]byte{0xab})
	if short[0] != 0xab || short[1] != 0 {
		t.Fatalf("short input must be zero-padded, got %s", short)
	}

	long := make([]byte, types.GidSize+8)
	for i := range long {
		long[i] = byte(i + 1)
	}
	g := types.GidFromBytes(long)
	if g[types.GidSize-1] != byte(types.GidSize) {
		t.Fatalf("long input must be truncated at %d bytes, got %s", types.GidSize, g)
	}
}
