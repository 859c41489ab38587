// Package fields resolves the concrete set of form fields one user sees for
// an exercise: positional field and option names, randomized subsets drawn
// per user, and the integrity tokens that let a later grading request work
// on exactly the subset that was shown.
package fields

import (
	"fmt"

	"github.com/mlahtinen/gradery/internal/domain"
	"github.com/mlahtinen/gradery/internal/sample"
)

// Request selects the audience and mode for a build. In render mode samples
// are drawn fresh and tokens generated; in grading mode the tokens travel in
// with the submission, are integrity checked and decoded, and the decoded
// subsets are used as-is.
type Request struct {
	UserID     string
	Ordinal    int // attempt ordinal, mixed into resampling seeds
	Grading    bool
	Submission domain.Submission
}

// Option is one active option of a built field, carrying its position in the
// full configured option list.
type Option struct {
	Index int
	Name  string
	Spec  domain.OptionSpec
}

// Field is one active field of a built form.
type Field struct {
	Spec        *domain.FieldSpec
	Name        string
	GroupName   string
	GroupErrors bool
	Options     []Option
	RowNames    []string

	// Per-field sample token for randomized option subsets, empty when the
	// field is not randomized.
	SampleToken    string
	SampleChecksum string
}

// MaxPoints is the maximum the field can award.
func (f *Field) MaxPoints() int {
	total := f.Spec.Points
	for _, row := range f.Spec.Rows {
		total += row.Points
	}
	return total
}

// CorrectOptionCount counts the active options marked correct.
func (f *Field) CorrectOptionCount() int {
	n := 0
	for _, opt := range f.Options {
		if opt.Spec.Correct == domain.CorrectYes {
			n++
		}
	}
	return n
}

// Descriptor carries the combined group-level sample token of a built form.
// It is empty when no group picks fields randomly.
type Descriptor struct {
	Token    string
	Checksum string
}

// Build resolves the active fields of an exercise for one user. secret keys
// the sample checksums; the caller resolves it from the exercise, course or
// deployment configuration.
func Build(ex *domain.Exercise, req Request, secret string) ([]*Field, *Descriptor, error) {
	var (
		out           []*Field
		groupSegments []string
		ordinal       int
	)

	groupTokens, err := groupTokensFor(ex, req, secret)
	if err != nil {
		return nil, nil, err
	}
	randomizedGroup := 0

	for g, group := range ex.Groups {
		activeFields, err := activeFieldIndexes(ex, g, &group, req, groupTokens, &randomizedGroup, &groupSegments)
		if err != nil {
			return nil, nil, err
		}

		for i := range group.Fields {
			if activeFields != nil && !activeFields[i] {
				continue
			}
			spec := &group.Fields[i]

			// Names are positional over the active fields. Grading rebuilds
			// the same subset from the sample token, so the positions match
			// what the user was shown.
			name := spec.Key
			if name == "" {
				name = fmt.Sprintf("field_%d", ordinal)
			}

			field := &Field{
				Spec:        spec,
				Name:        name,
				GroupName:   group.Name,
				GroupErrors: group.GroupErrors,
			}
			if spec.Kind.IsTable() {
				// Each table row takes its own ordinal and submission name.
				for r, row := range spec.Rows {
					rowName := row.Key
					if rowName == "" {
						rowName = fmt.Sprintf("field_%d", ordinal+r)
					}
					field.RowNames = append(field.RowNames, rowName)
				}
				ordinal += len(spec.Rows)
			} else {
				ordinal++
			}
			if err := buildOptions(ex, field, req, secret); err != nil {
				return nil, nil, err
			}
			out = append(out, field)
		}
	}

	desc := &Descriptor{}
	if len(groupSegments) > 0 {
		desc.Token = sample.JoinGroups(groupSegments)
		desc.Checksum = sample.Checksum(secret, desc.Token)
	}
	return out, desc, nil
}

// groupTokensFor returns the decoded per-group field samples in grading
// mode, or nil in render mode. The group token is verified as a whole before
// any segment is trusted.
func groupTokensFor(ex *domain.Exercise, req Request, secret string) ([][]int, error) {
	if !req.Grading {
		return nil, nil
	}
	randomized := 0
	for _, group := range ex.Groups {
		if group.PickRandomly > 0 {
			randomized++
		}
	}
	if randomized == 0 {
		return nil, nil
	}

	token := req.Submission.Get("_sample")
	checksum := req.Submission.Get("_checksum")
	if err := sample.Verify(secret, token, checksum); err != nil {
		return nil, err
	}
	segments := sample.SplitGroups(token)
	if len(segments) != randomized {
		return nil, fmt.Errorf("token %q has %d group segments, expected %d: %w",
			token, len(segments), randomized, domain.ErrInvalidSample)
	}
	decoded := make([][]int, len(segments))
	for i, seg := range segments {
		indexes, err := sample.DecodeIndexes(seg)
		if err != nil {
			return nil, err
		}
		decoded[i] = indexes
	}
	return decoded, nil
}

// activeFieldIndexes resolves which fields of one group are active. A group
// without pick_randomly keeps every field and contributes no token segment.
func activeFieldIndexes(ex *domain.Exercise, g int, group *domain.FieldGroup, req Request,
	groupTokens [][]int, randomizedGroup *int, segments *[]string) (map[int]bool, error) {

	if group.PickRandomly == 0 {
		return nil, nil
	}

	var indexes []int
	if req.Grading {
		indexes = groupTokens[*randomizedGroup]
		*randomizedGroup++
		if len(indexes) != group.PickRandomly {
			return nil, fmt.Errorf("group %q sample has %d indexes, expected %d: %w",
				group.Name, len(indexes), group.PickRandomly, domain.ErrInvalidSample)
		}
		for _, idx := range indexes {
			if idx >= len(group.Fields) {
				return nil, fmt.Errorf("group %q sample index %d out of range: %w",
					group.Name, idx, domain.ErrInvalidSample)
			}
		}
	} else {
		var err error
		indexes, err = sample.Draw(sample.Params{
			ExerciseKey:          ex.Key,
			QuestionKey:          fmt.Sprintf("_fieldgroup%d", g),
			UserID:               req.UserID,
			ResampleAfterAttempt: group.ResampleAfterAttempt,
			Ordinal:              req.Ordinal,
			Range:                len(group.Fields),
			Count:                group.PickRandomly,
		})
		if err != nil {
			return nil, err
		}
		*segments = append(*segments, sample.EncodeIndexes(indexes))
	}

	active := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		active[idx] = true
	}
	return active, nil
}

// buildOptions resolves the active option subset of a field. Non-randomized
// choice fields keep every option in configured order.
func buildOptions(ex *domain.Exercise, field *Field, req Request, secret string) error {
	spec := field.Spec
	if !spec.Kind.IsChoice() {
		return nil
	}

	if spec.Randomized == 0 {
		for j, opt := range spec.Options {
			field.Options = append(field.Options, Option{Index: j, Name: optionName(opt, j), Spec: opt})
		}
		return nil
	}

	var indexes []int
	if req.Grading {
		token := req.Submission.Get(field.Name + "_sample")
		checksum := req.Submission.Get(field.Name + "_checksum")
		if err := sample.Verify(secret, token, checksum); err != nil {
			return err
		}
		decoded, err := sample.DecodeIndexes(token)
		if err != nil {
			return err
		}
		if len(decoded) != spec.Randomized {
			return fmt.Errorf("field %q sample has %d indexes, expected %d: %w",
				field.Name, len(decoded), spec.Randomized, domain.ErrInvalidSample)
		}
		for _, idx := range decoded {
			if idx >= len(spec.Options) {
				return fmt.Errorf("field %q sample index %d out of range: %w",
					field.Name, idx, domain.ErrInvalidSample)
			}
		}
		indexes = decoded
		field.SampleToken = token
		field.SampleChecksum = checksum
	} else {
		params := sample.Params{
			ExerciseKey:          ex.Key,
			QuestionKey:          field.Name,
			UserID:               req.UserID,
			ResampleAfterAttempt: spec.ResampleAfterAttempt,
			Ordinal:              req.Ordinal,
			Range:                len(spec.Options),
			Count:                spec.Randomized,
		}
		if spec.HasCorrectCount {
			params.HasCorrectCount = true
			params.CorrectCount = spec.CorrectCount
			for j, opt := range spec.Options {
				switch opt.Correct {
				case domain.CorrectYes:
					params.CorrectIndexes = append(params.CorrectIndexes, j)
				case domain.CorrectNo:
					params.IncorrectIndexes = append(params.IncorrectIndexes, j)
				}
			}
		}
		drawn, err := sample.Draw(params)
		if err != nil {
			return err
		}
		indexes = drawn
		field.SampleToken = sample.EncodeIndexes(indexes)
		field.SampleChecksum = sample.Checksum(secret, field.SampleToken)
	}

	for _, idx := range indexes {
		opt := spec.Options[idx]
		field.Options = append(field.Options, Option{Index: idx, Name: optionName(opt, idx), Spec: opt})
	}
	return nil
}

func optionName(opt domain.OptionSpec, index int) string {
	if opt.Value != "" {
		return opt.Value
	}
	return fmt.Sprintf("option_%d", index)
}
