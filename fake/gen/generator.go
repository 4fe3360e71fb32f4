// Package gen generates random values in skewed distributions, so generated
// data has a few hot values and a long tail.
package gen

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"math/rand"
	"time"
)

// Generator holds state for generating random data in certain
// distributions. It is not safe for concurrent use.
type Generator struct {
	r    *rand.Rand
	zs   map[int]*rand.Zipf
	last map[time.Time]time.Duration
	hsh  hash.Hash
}

// NewGenerator gets a new Generator.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		r:    rand.New(rand.NewSource(seed)),
		zs:   make(map[int]*rand.Zipf),
		last: make(map[time.Time]time.Duration),
		hsh:  sha1.New(),
	}
}

// Intn returns a uniform int in [0, n).
func (g *Generator) Intn(n int) int {
	return g.r.Intn(n)
}

// String gets a zipfian random string of the given length (at most 32) from
// a set with the given cardinality.
func (g *Generator) String(length, cardinality int) string {
	if length > 32 {
		length = 32
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, g.Uint64(cardinality))
	_, _ = g.hsh.Write(b)
	hashed := g.hsh.Sum(nil)
	g.hsh.Reset()
	return base32.StdEncoding.EncodeToString(hashed)[:length]
}

// Uint64 gets a zipfian random uint64 in [0, cardinality).
func (g *Generator) Uint64(cardinality int) uint64 {
	z, ok := g.zs[cardinality]
	if !ok {
		// rand.Zipf generates values in [0, imax].
		imax := uint64(cardinality) - 1
		v := 0.05 * float64(imax)
		if v < 1.0 {
			v = 1.0
		}
		z = rand.NewZipf(g.r, 1.1, v, imax)
		g.zs[cardinality] = z
	}
	return z.Uint64()
}

// Time returns a time moving forward from "from" by a random delta of less
// than maxDelta on each call.
func (g *Generator) Time(from time.Time, maxDelta time.Duration) time.Time {
	delta := g.last[from] + time.Duration(g.r.Uint64()%uint64(maxDelta))
	g.last[from] = delta
	return from.Add(delta)
}
