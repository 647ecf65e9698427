package activity

// ItemResult records the verdict for one item in a check cycle.
type ItemResult struct {
	Item     string `json:"item"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Correct  bool   `json:"correct"`
}

// Result is produced exactly once per check cycle and is immutable after
// creation. Attempts counts check cycles; Failed marks a forced submit for
// teacher review.
type Result struct {
	Score      int          `json:"score"`
	Total      int          `json:"total"`
	Percentage float64      `json:"percentage"`
	Attempts   int          `json:"attempts"`
	Failed     bool         `json:"failed,omitempty"`
	Results    []ItemResult `json:"results"`
}
