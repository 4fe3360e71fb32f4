package gen_test

import (
	"testing"
	"time"

	"github.com/pilosa/datalake/fake/gen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime(t *testing.T) {
	g := gen.NewGenerator(0)
	start := time.Date(2018, 01, 01, 0, 0, 0, 0, time.UTC)
	last := start
	for i := 0; i < 1000; i++ {
		tim := g.Time(start, time.Second)
		require.False(t, tim.Before(last), "generated a time before the last time")
		require.True(t, tim.Sub(last) < time.Second, "generated a time a second or more after the last one")
		last = tim
	}
}

func TestUint64(t *testing.T) {
	g := gen.NewGenerator(1)
	for i := 0; i < 1000; i++ {
		assert.True(t, g.Uint64(10) < 10)
	}
}

func TestStringRepeatable(t *testing.T) {
	a, b := gen.NewGenerator(7), gen.NewGenerator(7)
	for i := 0; i < 10; i++ {
		s := a.String(6, 100)
		assert.Len(t, s, 6)
		assert.Equal(t, s, b.String(6, 100))
	}
}
