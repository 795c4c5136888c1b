package service

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ReferenceGenerator produces the human-typeable payment references members
// enter into the external payment app. The format is
// PREFIX-<base36 millisecond timestamp>-<6 random base36 chars>, uppercased.
// The timestamp mixes time into uniqueness; the random suffix covers
// same-millisecond submissions. References are bookkeeping identifiers, not
// secrets: uniqueness in the store is enforced per (user, subject), not per
// reference.
type ReferenceGenerator struct {
	prefix string
	now    func() time.Time
	random func(n int) string
}

// NewReferenceGenerator builds a generator with the configured prefix.
func NewReferenceGenerator(prefix string) *ReferenceGenerator {
	if prefix == "" {
		prefix = "JU10"
	}
	return &ReferenceGenerator{
		prefix: strings.ToUpper(prefix),
		now:    time.Now,
		random: randomBase36,
	}
}

// Generate returns a fresh payment reference. It is total: it cannot fail.
func (g *ReferenceGenerator) Generate() string {
	ts := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	return g.prefix + "-" + ts + "-" + g.random(6)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived suffix rather than returning an error from a
		// generator documented as total.
		ns := strconv.FormatInt(time.Now().UnixNano(), 36)
		return strings.ToUpper(ns[len(ns)-n:])
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out)
}
