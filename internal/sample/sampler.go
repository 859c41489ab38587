// Package sample implements deterministic seeded sampling for randomized
// question subsets, and the integrity-protected sample tokens that let a
// grading request reproduce the exact subset a user was shown.
package sample

import (
	"hash/fnv"
	"math/rand"

	"github.com/mlahtinen/gradery/internal/domain"
)

// Params describes one sampling request.
type Params struct {
	// Seed inputs. The same exercise key, question key and user id always
	// yield the same sample, across process restarts.
	ExerciseKey string
	QuestionKey string
	UserID      string

	// ResampleAfterAttempt mixes the attempt ordinal into the seed so a new
	// attempt draws a new subset.
	ResampleAfterAttempt bool
	Ordinal              int

	Range int // number of indexes to sample from
	Count int // how many to pick

	// Randomized-checkbox mode: pick exactly CorrectCount indexes from
	// CorrectIndexes and Count-CorrectCount from IncorrectIndexes, then
	// shuffle so correct options are not positionally distinguishable.
	HasCorrectCount  bool
	CorrectCount     int
	CorrectIndexes   []int
	IncorrectIndexes []int
}

// Draw returns a deterministic pseudo-random index sample for p. The subset
// size invariants are validated here and violations are configuration errors.
func Draw(p Params) ([]int, error) {
	if p.Count < 0 || p.Count > p.Range {
		return nil, domain.Configf("", "cannot pick %d of %d items", p.Count, p.Range)
	}
	if p.HasCorrectCount {
		if p.CorrectCount > len(p.CorrectIndexes) {
			return nil, domain.Configf("", "correct_count %d exceeds the %d correct options",
				p.CorrectCount, len(p.CorrectIndexes))
		}
		if p.Count-p.CorrectCount > len(p.IncorrectIndexes) {
			return nil, domain.Configf("", "randomized %d with correct_count %d exceeds the %d incorrect options",
				p.Count, p.CorrectCount, len(p.IncorrectIndexes))
		}
	}

	rng := newRNG(p)

	if p.HasCorrectCount {
		picked := pick(rng, p.CorrectIndexes, p.CorrectCount)
		picked = append(picked, pick(rng, p.IncorrectIndexes, p.Count-p.CorrectCount)...)
		rng.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
		return picked, nil
	}

	all := make([]int, p.Range)
	for i := range all {
		all[i] = i
	}
	return pick(rng, all, p.Count), nil
}

// newRNG derives the generator for p. A fresh rand.Rand instance is used so
// no state leaks between unrelated sampling calls. The two-stage seeding
// keeps samples for the same user and question stable across page reloads
// while still separating attempts when resampling is requested.
func newRNG(p Params) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(p.ExerciseKey))
	h.Write([]byte(p.QuestionKey))
	h.Write([]byte(p.UserID))

	base := rand.New(rand.NewSource(int64(h.Sum64())))
	seed := base.Int63n(10_000_000_000)
	if p.ResampleAfterAttempt {
		seed += int64(p.Ordinal)
	}
	return rand.New(rand.NewSource(seed))
}

// pick selects k distinct elements of items in random order.
func pick(rng *rand.Rand, items []int, k int) []int {
	out := make([]int, 0, k)
	for _, idx := range rng.Perm(len(items))[:k] {
		out = append(out, items[idx])
	}
	return out
}
