package domain

// FieldResult is the graded outcome of a single field.
type FieldResult struct {
	Name      string   `json:"name"`
	Points    int      `json:"points"`
	MaxPoints int      `json:"max_points"`
	Correct   bool     `json:"correct"` // fully correct: earned == max
	Hints     []string `json:"hints,omitempty"`
}

// GradingResult is the outcome of grading one submission against one
// resolved exercise.
type GradingResult struct {
	Points      int                 `json:"points"`
	MaxPoints   int                 `json:"max_points"`
	ErrorGroups []string            `json:"error_groups"`
	ErrorFields []string            `json:"error_fields"`
	Hints       map[string][]string `json:"hints"`
	Fields      []FieldResult       `json:"fields"`
}

// Passed reports whether every field was fully correct.
func (r *GradingResult) Passed() bool {
	return len(r.ErrorFields) == 0
}
