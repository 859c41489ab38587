// Package grading grades one submission against one resolved exercise. The
// active field subset is rebuilt from the submission's integrity-checked
// sample tokens, each field runs through a per-kind decision tree, and
// points, error sets and ordered hint texts are accumulated into a result.
package grading

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mlahtinen/gradery/internal/compare"
	"github.com/mlahtinen/gradery/internal/domain"
	"github.com/mlahtinen/gradery/internal/fields"
	"github.com/mlahtinen/gradery/internal/i18n"
)

// FileJob describes one submitted file relayed to an external grading
// collaborator.
type FileJob struct {
	CourseKey   string
	ExerciseKey string
	FieldName   string
	UserID      string
	Lang        string
	FileRef     string
}

// FileDispatcher hands file-field submissions off for external grading.
type FileDispatcher interface {
	Dispatch(ctx context.Context, job FileJob) error
}

// Engine grades submissions.
type Engine struct {
	messages *i18n.Messages
	secret   string
	log      *slog.Logger
	files    FileDispatcher
}

// Option configures an Engine.
type Option func(*Engine)

// WithFileDispatcher routes file-field submissions to an external grader.
// Without one, file fields still grade as correct but nothing is relayed.
func WithFileDispatcher(d FileDispatcher) Option {
	return func(e *Engine) { e.files = d }
}

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine. secret is the deployment-wide sample secret, used
// when neither the exercise nor its course overrides it.
func New(messages *i18n.Messages, secret string, opts ...Option) *Engine {
	e := &Engine{messages: messages, secret: secret, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Secret resolves the sample secret for an exercise: the exercise's own,
// then the course's, then the deployment default.
func (e *Engine) Secret(ex *domain.Exercise, course *domain.Course) string {
	if ex.Secret != "" {
		return ex.Secret
	}
	if course != nil && course.Secret != "" {
		return course.Secret
	}
	return e.secret
}

// Grade grades one submission. userID and ordinal identify the attempt so
// randomized subsets resolve to what the user was shown; the sample tokens
// in the submission are verified before any subset is trusted.
func (e *Engine) Grade(ctx context.Context, course *domain.Course, ex *domain.Exercise,
	sub domain.Submission, userID string, ordinal int) (*domain.GradingResult, error) {

	secret := e.Secret(ex, course)
	built, _, err := fields.Build(ex, fields.Request{
		UserID:     userID,
		Ordinal:    ordinal,
		Grading:    true,
		Submission: sub,
	}, secret)
	if err != nil {
		return nil, err
	}

	result := &domain.GradingResult{
		ErrorGroups: []string{},
		ErrorFields: []string{},
		Hints:       map[string][]string{},
	}
	seenGroups := map[string]bool{}

	for _, field := range built {
		fr, ok, err := e.gradeField(ctx, course, ex, field, sub, userID)
		if err != nil {
			return nil, err
		}
		result.Points += fr.Points
		result.MaxPoints += fr.MaxPoints
		result.Fields = append(result.Fields, fr)
		if len(fr.Hints) > 0 {
			result.Hints[field.Name] = fr.Hints
		}
		if !ok {
			result.ErrorFields = append(result.ErrorFields, field.Name)
			if !seenGroups[field.GroupName] {
				seenGroups[field.GroupName] = true
				result.ErrorGroups = append(result.ErrorGroups, field.GroupName)
			}
		}
	}
	return result, nil
}

// gradeField grades one active field. The bool result is the pass/fail
// used for the error sets; points may be partial.
func (e *Engine) gradeField(ctx context.Context, course *domain.Course, ex *domain.Exercise,
	field *fields.Field, sub domain.Submission, userID string) (domain.FieldResult, bool, error) {

	if field.Spec.Kind.IsTable() {
		return e.gradeTable(ex, field, sub)
	}

	var (
		ok           bool
		fraction     float64
		hints        []string
		correctCount int
		err          error
	)
	value := sub.Get(field.Name)
	values := sub.List(field.Name)

	switch field.Spec.Kind {
	case domain.FieldCheckbox:
		ok, fraction, correctCount, hints = gradeCheckbox(field.Options, values, field.Spec.PartialPoints)
	case domain.FieldRadio, domain.FieldDropdown:
		ok, hints = gradeRadio(field.Options, value)
		fraction = boolFraction(ok)
	case domain.FieldText, domain.FieldTextarea:
		ok, hints, err = e.gradeText(ex, field.Spec, value)
		if err != nil {
			return domain.FieldResult{}, false, err
		}
		fraction = boolFraction(ok)
	case domain.FieldStatic, domain.FieldFile:
		ok, fraction = true, 1
		if field.Spec.Kind == domain.FieldFile {
			e.dispatchFile(ctx, course, ex, field, sub, userID)
		}
	}

	points := field.Spec.Points
	var earned int
	switch {
	case ex.Feedback:
		// Feedback questionnaires always pass with full points.
		ok = true
		earned = points
	case field.Spec.PartialPoints:
		earned = clamp(int(float64(points)*fraction), 0, points)
		ok = earned == points
	case ok:
		earned = points
	}

	hints = e.applyFeedbackRules(field, value, values, ok, hints)
	if field.Spec.Kind == domain.FieldCheckbox && correctCount > 1 && len(values) == 1 {
		hints = appendHint(hints, e.messages.T(ex.Lang, i18n.MsgMultipleSelectable))
	}

	return domain.FieldResult{
		Name:      field.Name,
		Points:    earned,
		MaxPoints: points,
		Correct:   earned == points,
		Hints:     hints,
	}, ok, nil
}

// gradeTable grades every row of a table field independently and aggregates.
// Table fields take no feedback rules.
func (e *Engine) gradeTable(ex *domain.Exercise, field *fields.Field,
	sub domain.Submission) (domain.FieldResult, bool, error) {

	spec := field.Spec
	allOK := true
	earned := spec.Points
	maxPoints := spec.Points
	var hints []string

	for r, row := range spec.Rows {
		rowName := field.RowNames[r]
		rowOptions := rowOptionsFor(field, row)

		var ok bool
		var fraction float64
		var rowHints []string
		if spec.Kind == domain.FieldTableCheckbox {
			ok, fraction, _, rowHints = gradeCheckbox(rowOptions, sub.List(rowName), spec.PartialPoints)
		} else {
			ok, rowHints = gradeRadio(rowOptions, sub.Get(rowName))
			fraction = boolFraction(ok)
		}
		for _, h := range rowHints {
			hints = appendHint(hints, h)
		}

		maxPoints += row.Points
		switch {
		case ex.Feedback:
			earned += row.Points
		case spec.PartialPoints:
			p := clamp(int(float64(row.Points)*fraction), 0, row.Points)
			earned += p
			if p != row.Points {
				allOK = false
			}
		case ok:
			earned += row.Points
		default:
			allOK = false
		}
	}
	if ex.Feedback {
		allOK = true
	}

	return domain.FieldResult{
		Name:      field.Name,
		Points:    earned,
		MaxPoints: maxPoints,
		Correct:   earned == maxPoints,
		Hints:     hints,
	}, allOK, nil
}

// rowOptionsFor rewrites the field's options with the row's correctness
// markers and hint.
func rowOptionsFor(field *fields.Field, row domain.TableRow) []fields.Option {
	out := make([]fields.Option, len(field.Options))
	for i, opt := range field.Options {
		out[i] = opt
		out[i].Spec.Correct = domain.CorrectNo
		if opt.Index < len(row.CorrectOptions) {
			out[i].Spec.Correct = row.CorrectOptions[opt.Index]
		}
		out[i].Spec.Hint = row.Hint
	}
	return out
}

// gradeCheckbox classifies every active option. Every non-neutral option's
// membership in the submitted values must match its correctness. With
// partial points the result degrades to a fraction instead of failing
// outright.
func gradeCheckbox(options []fields.Option, values []string, partial bool) (bool, float64, int, []string) {
	var hints []string
	correct := true
	correctCount, nonNeutral, wrong := 0, 0, 0

	for _, opt := range options {
		selected := contains(values, opt.Name)
		switch opt.Spec.Correct {
		case domain.CorrectYes:
			correctCount++
			nonNeutral++
			if !selected {
				wrong++
				correct = false
				hints = appendHint(hints, opt.Spec.Hint)
			}
		case domain.CorrectNo:
			nonNeutral++
			if selected {
				wrong++
				correct = false
				hints = appendHint(hints, opt.Spec.Hint)
			}
		case domain.CorrectNeutral:
			if selected {
				hints = appendHint(hints, opt.Spec.Hint)
			}
		}
	}

	fraction := boolFraction(correct)
	if partial {
		if wrong == 0 || nonNeutral == 0 {
			fraction = 1
		} else {
			half := float64(nonNeutral) / 2
			fraction = (half - float64(wrong)) / half
		}
	}
	return correct, fraction, correctCount, hints
}

// gradeRadio passes when any option marked correct is the submitted value.
// Unmatched correct options and a selected incorrect option contribute their
// hints.
func gradeRadio(options []fields.Option, value string) (bool, []string) {
	var hints []string
	correct := false
	for _, opt := range options {
		if opt.Spec.Correct == domain.CorrectYes {
			if opt.Name == value {
				correct = true
			} else {
				hints = appendHint(hints, opt.Spec.Hint)
			}
		} else if opt.Name == value {
			hints = appendHint(hints, opt.Spec.Hint)
		}
	}
	return correct, hints
}

// gradeText compares a free-text answer against the model. A configured
// regex pattern takes precedence over the correct value; with neither the
// answer is vacuously correct.
func (e *Engine) gradeText(ex *domain.Exercise, spec *domain.FieldSpec, value string) (bool, []string, error) {
	var hints []string
	method, err := compare.Parse(spec.CompareMethod)
	if err != nil {
		return false, nil, err
	}

	switch {
	case spec.Regex != "":
		re, err := compare.Parse(string(compare.KindRegexp))
		if err != nil {
			return false, nil, err
		}
		ok, err := compare.Equal(re, value, spec.Regex)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			hints = appendHint(hints, spec.Hint)
		}
		return ok, hints, nil

	case spec.Correct != "":
		if method.Base == compare.KindSubdiff {
			ok, err := compare.Subdiff(method, value, spec.Correct)
			if err != nil {
				return false, nil, err
			}
			if !ok {
				hints = append(hints, e.subdiffHints(ex.Lang, value, spec.Correct)...)
			}
			return ok, hints, nil
		}
		ok, err := compare.Equal(method, value, spec.Correct)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			hints = appendHint(hints, spec.Hint)
		}
		return ok, hints, nil
	}
	return true, nil, nil
}

// subdiffHints renders the matched substrings of a failed subdiff answer,
// one line per acceptable alternative.
func (e *Engine) subdiffHints(lang, value, model string) []string {
	alternatives := compare.Alternatives(model)
	var hints []string
	if len(alternatives) > 1 {
		hints = append(hints, e.messages.T(lang, i18n.MsgMultipleCorrect))
	}
	prefix := e.messages.T(lang, i18n.MsgCorrectParts)
	for _, alt := range alternatives {
		hints = append(hints, prefix+compare.MatchingParts(value, alt))
	}
	return hints
}

// applyFeedbackRules evaluates configured feedback rules after base grading.
// The special value "%100%" matches iff the field passed; other rules derive
// their comparison from the field's own method. Matching hints are inserted
// with prefix-deduplication.
func (e *Engine) applyFeedbackRules(field *fields.Field, value string, values []string,
	ok bool, hints []string) []string {

	if len(field.Spec.Feedback) == 0 {
		return hints
	}
	method, err := compare.Parse(field.Spec.CompareMethod)
	if err != nil {
		return hints
	}

	for _, rule := range field.Spec.Feedback {
		if rule.Label == "" {
			continue
		}
		add := false
		if rule.Value == "%100%" {
			add = ok
		} else {
			matched := e.ruleMatches(field, method, rule, value, values)
			if rule.Not {
				add = !matched
			} else {
				add = matched
			}
		}
		if add {
			hints = insertHint(hints, rule.Label)
		}
	}
	return hints
}

// ruleMatches compares a submitted value against one feedback rule's value.
// Choice fields match by option membership; text fields derive a string or
// regexp comparison from the field's method, keeping its modifiers.
func (e *Engine) ruleMatches(field *fields.Field, method compare.Method,
	rule domain.FeedbackRule, value string, values []string) bool {

	if field.Spec.Kind == domain.FieldCheckbox {
		return contains(values, rule.Value)
	}

	derived := method
	switch method.Base {
	case compare.KindString, compare.KindRegexp, compare.KindSubdiff:
		if rule.CompareRegexp {
			derived = method.WithBase(compare.KindRegexp)
		} else {
			derived = method.WithBase(compare.KindString)
		}
	}
	matched, err := compare.Equal(derived, value, rule.Value)
	if err != nil {
		e.log.Warn("feedback rule comparison failed", "field", field.Name, "error", err)
		return false
	}
	return matched
}

func (e *Engine) dispatchFile(ctx context.Context, course *domain.Course, ex *domain.Exercise,
	field *fields.Field, sub domain.Submission, userID string) {

	if e.files == nil {
		return
	}
	ref := sub.File(field.Name)
	if ref == "" {
		return
	}
	courseKey := ""
	if course != nil {
		courseKey = course.Key
	}
	job := FileJob{
		CourseKey:   courseKey,
		ExerciseKey: ex.Key,
		FieldName:   field.Name,
		UserID:      userID,
		Lang:        ex.Lang,
		FileRef:     ref,
	}
	if err := e.files.Dispatch(ctx, job); err != nil {
		// External grading is best effort; the form result stands on its own.
		e.log.Error("file grading dispatch failed",
			"exercise", ex.Key, "field", field.Name, "error", err)
	}
}

// appendHint adds a hint unless it is empty or already present.
func appendHint(hints []string, hint string) []string {
	if hint == "" {
		return hints
	}
	for _, h := range hints {
		if h == hint {
			return hints
		}
	}
	return append(hints, hint)
}

// insertHint adds a hint with prefix-deduplication: a hint extending an
// existing one replaces it, a hint an existing one already extends is
// dropped.
func insertHint(hints []string, hint string) []string {
	for i, h := range hints {
		if strings.HasPrefix(hint, h) {
			hints[i] = hint
			return hints
		}
		if strings.HasPrefix(h, hint) {
			return hints
		}
	}
	return append(hints, hint)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func boolFraction(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
