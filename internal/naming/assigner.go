// Package naming assigns human-readable, registry-unique process aliases.
package naming

import (
	"math/rand/v2"
	"os"
	"slices"
	"time"
)

// FallbackPrefixLen is the length of the random prefix used once every
// adjective and noun has been tried.
const FallbackPrefixLen = 8

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultPrefixes are the adjectives combined with program names.
var DefaultPrefixes = []string{
	"curious", "gentle", "happy", "stubborn", "boring", "interesting",
	"funny", "weird", "surprising", "serious", "tender", "obvious",
	"great", "proud", "silent", "loud", "vacuous", "focused",
	"pretty", "slick", "tedious", "daring", "tenacious", "swift",
	"resilient", "rigorous", "friendly", "creative", "polite", "frank",
	"honest", "warm", "smart", "intriguing",
}

// DefaultNouns replace the program name when every prefix collided.
var DefaultNouns = []string{
	"program", "application", "app", "code", "blob", "binary", "script",
}

// InUseFunc reports whether a name is already taken.
type InUseFunc func(name string) bool

// Assigner produces names of the form "<prefix>_<base>". Its pools are
// consumed without replacement for the lifetime of the Assigner; uniqueness
// across processes comes only from the InUseFunc check.
type Assigner struct {
	inUse    InUseFunc
	rng      *rand.Rand
	prefixes []string
	bag      []string
	nouns    []string
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithRand sets the random source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(a *Assigner) { a.rng = r }
}

// WithPools replaces the adjective and noun pools.
func WithPools(prefixes, nouns []string) Option {
	return func(a *Assigner) {
		a.prefixes = slices.Clone(prefixes)
		a.nouns = slices.Clone(nouns)
	}
}

// New returns an Assigner checking candidates with inUse.
func New(inUse InUseFunc, opts ...Option) *Assigner {
	a := &Assigner{
		inUse:    inUse,
		prefixes: slices.Clone(DefaultPrefixes),
		nouns:    slices.Clone(DefaultNouns),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))
	}
	if a.inUse == nil {
		a.inUse = func(string) bool { return false }
	}
	a.bag = slices.Clone(a.prefixes)
	return a
}

// Assign returns a name derived from base that inUse does not report. It never
// fails: once both pools are exhausted it returns a random-prefixed name
// without checking it.
func (a *Assigner) Assign(base string) string {
	name := base
	for {
		var prefix string
		switch {
		case len(a.bag) > 0:
			prefix = a.draw(&a.bag)
		case len(a.nouns) > 0:
			name = a.draw(&a.nouns)
			a.bag = slices.Clone(a.prefixes)
			continue
		default:
			return RandomAlphanumeric(a.rng, FallbackPrefixLen) + "_" + base
		}

		candidate := prefix + "_" + name
		if !a.inUse(candidate) {
			return candidate
		}
	}
}

func (a *Assigner) draw(pool *[]string) string {
	i := a.rng.IntN(len(*pool))
	v := (*pool)[i]
	*pool = slices.Delete(*pool, i, i+1)
	return v
}

// RandomAlphanumeric returns n random characters from [a-zA-Z0-9].
func RandomAlphanumeric(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[r.IntN(len(alphanumeric))]
	}
	return string(b)
}
