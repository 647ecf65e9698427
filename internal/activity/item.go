package activity

// Type identifies one of the interactive activity variants.
type Type string

const (
	TypeSort   Type = "sort"
	TypeMatch  Type = "match"
	TypeMemory Type = "memory"
	TypePuzzle Type = "puzzle"
	TypeColor  Type = "color"
	TypeQuiz   Type = "quiz"
)

// ParseType maps a homework's declared activity type to a Type. Unknown or
// empty strings report ok=false; callers fall back to manual completion.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeSort, TypeMatch, TypeMemory, TypePuzzle, TypeColor, TypeQuiz:
		return Type(s), true
	}
	return "", false
}

// Item is the shared shape consumed by every variant. Name is the
// interactive label; Target is the correct bucket/match/color/order key.
// Items are immutable once a session starts.
type Item struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Hint   string `json:"hint,omitempty"`
	Pair   string `json:"pair,omitempty"`
}
