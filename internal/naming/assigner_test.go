package naming

import (
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed+1)))
}

func TestAssignFormat(t *testing.T) {
	a := New(nil, seeded(1))
	name := a.Assign("myapp")

	prefix, base, ok := strings.Cut(name, "_")
	require.True(t, ok)
	assert.Equal(t, "myapp", base)
	assert.Contains(t, DefaultPrefixes, prefix)
}

func TestAssignDeterministic(t *testing.T) {
	a := New(nil, seeded(7))
	b := New(nil, seeded(7))
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Assign("x"), b.Assign("x"))
	}
}

func TestAssignSkipsNamesInUse(t *testing.T) {
	taken := map[string]bool{"a_app": true, "b_app": true}
	a := New(func(n string) bool { return taken[n] }, seeded(3), WithPools([]string{"a", "b", "c"}, nil))
	assert.Equal(t, "c_app", a.Assign("app"))
}

func TestAssignPoolsConsumedWithoutReplacement(t *testing.T) {
	a := New(nil, seeded(5), WithPools([]string{"a", "b", "c"}, nil))
	got := []string{a.Assign("x"), a.Assign("x"), a.Assign("x")}
	slices.Sort(got)
	assert.Equal(t, []string{"a_x", "b_x", "c_x"}, got)
}

func TestAssignExhaustedPrefixesUsesNoun(t *testing.T) {
	a := New(nil, seeded(11))
	a.bag = nil
	a.nouns = []string{"blob"}

	name := a.Assign("myapp")
	prefix, noun, ok := strings.Cut(name, "_")
	require.True(t, ok)
	assert.Equal(t, "blob", noun)
	assert.Contains(t, DefaultPrefixes, prefix)
	assert.Empty(t, a.nouns)
	assert.Len(t, a.bag, len(DefaultPrefixes)-1, "prefix pool refilled, minus the one drawn")
	assert.NotContains(t, a.bag, prefix)
}

func TestAssignTerminatesWhenEverythingCollides(t *testing.T) {
	prefixes := []string{"p1", "p2", "p3"}
	nouns := []string{"n1", "n2"}
	taken := map[string]bool{}
	for _, p := range prefixes {
		for _, b := range append([]string{"myapp"}, nouns...) {
			taken[p+"_"+b] = true
		}
	}
	checks := 0
	a := New(func(n string) bool {
		checks++
		return taken[n]
	}, seeded(13), WithPools(prefixes, nouns))

	name := a.Assign("myapp")
	assert.False(t, taken[name])
	assert.Regexp(t, regexp.MustCompile(`^[a-zA-Z0-9]{8}_myapp$`), name)
	assert.Equal(t, len(taken), checks, "every human-readable candidate is tried exactly once")

	// Pools stay exhausted: later calls go straight to the random fallback.
	assert.Regexp(t, `^[a-zA-Z0-9]{8}_other$`, a.Assign("other"))
	assert.Equal(t, len(taken), checks)
}

func TestRandomAlphanumeric(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	s := RandomAlphanumeric(r, 32)
	assert.Len(t, s, 32)
	assert.Regexp(t, `^[a-zA-Z0-9]+$`, s)
}
