package activity

import "strings"

// Strategy scores one variant's placements against the item targets. It must
// be pure: scoring the same placements twice yields the same Result.
type Strategy interface {
	Score(items []Item, placements map[string]string) Result
}

// Scorer routes by activity type to the correct Strategy.
type Scorer struct {
	strategies map[Type]Strategy
}

// NewScorer installs the built-in strategies, one per variant.
func NewScorer() *Scorer {
	return &Scorer{
		strategies: map[Type]Strategy{
			TypeSort:   sortStrategy{},
			TypeMatch:  matchStrategy{},
			TypeMemory: memoryStrategy{},
			TypePuzzle: puzzleStrategy{},
			TypeColor:  colorStrategy{},
			TypeQuiz:   quizStrategy{},
		},
	}
}

func (s *Scorer) Strategy(t Type) (Strategy, bool) {
	st, ok := s.strategies[t]
	return st, ok
}

// score builds a Result from a per-item verdict. Unplaced items pass
// actual="" and count as incorrect, never as a separate "unanswered" state.
func score(items []Item, placements map[string]string, correct func(it Item, actual string, placed bool) bool) Result {
	res := Result{Total: len(items), Results: make([]ItemResult, 0, len(items))}
	for _, it := range items {
		actual, placed := placements[it.Name]
		ok := correct(it, actual, placed)
		if ok {
			res.Score++
		}
		res.Results = append(res.Results, ItemResult{
			Item:     it.Name,
			Expected: it.Target,
			Actual:   actual,
			Correct:  ok,
		})
	}
	if res.Total > 0 {
		res.Percentage = 100 * float64(res.Score) / float64(res.Total)
	}
	return res
}

// sortStrategy: correct iff the item sits in the category bucket equal to
// its target.
type sortStrategy struct{}

func (sortStrategy) Score(items []Item, placements map[string]string) Result {
	return score(items, placements, func(it Item, actual string, placed bool) bool {
		return placed && actual == it.Target
	})
}

// matchStrategy: correct iff the user-chosen match label equals the target.
// Re-matching overwrites, so placements hold only the latest choice.
type matchStrategy struct{}

func (matchStrategy) Score(items []Item, placements map[string]string) Result {
	return score(items, placements, func(it Item, actual string, placed bool) bool {
		return placed && actual == it.Target
	})
}

// memoryStrategy: the session records a placement only when a pair was
// matched during play, so correctness is simply "was matched".
type memoryStrategy struct{}

func (memoryStrategy) Score(items []Item, placements map[string]string) Result {
	return score(items, placements, func(it Item, actual string, placed bool) bool {
		return placed && actual == it.Target
	})
}

// puzzleStrategy: no correctness scoring; the final order is recorded as-is
// and an arranged puzzle is complete.
type puzzleStrategy struct{}

func (puzzleStrategy) Score(items []Item, placements map[string]string) Result {
	return score(items, placements, func(Item, string, bool) bool {
		return true
	})
}

// colorStrategy: correct iff the chosen color equals the lowercased target.
type colorStrategy struct{}

func (colorStrategy) Score(items []Item, placements map[string]string) Result {
	return score(items, placements, func(it Item, actual string, placed bool) bool {
		return placed && strings.ToLower(actual) == strings.ToLower(it.Target)
	})
}

// quizStrategy: single answer per question, exact match against the target.
type quizStrategy struct{}

func (quizStrategy) Score(items []Item, placements map[string]string) Result {
	return score(items, placements, func(it Item, actual string, placed bool) bool {
		return placed && actual == it.Target
	})
}
