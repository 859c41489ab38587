package courseconfig

import (
	"fmt"
	"time"

	"github.com/mlahtinen/gradery/internal/compare"
	"github.com/mlahtinen/gradery/internal/domain"
)

// parseExercise turns one fully tag-resolved language document into a typed
// exercise spec. Unknown field types and compare methods are rejected here,
// at parse time, so grading can switch exhaustively.
func parseExercise(file string, doc Document, key, lang string, modTime time.Time) (*domain.Exercise, error) {
	for _, required := range []string{"title", "view_type"} {
		if _, ok := doc[required]; !ok {
			return nil, domain.Configf(file, "required field %q missing", required)
		}
	}

	ex := &domain.Exercise{
		Key:      key,
		Lang:     lang,
		Title:    getString(doc, "title"),
		ViewType: getString(doc, "view_type"),
		Feedback: getBool(doc, "feedback"),
		Secret:   getString(doc, "secret"),
		ModTime:  modTime,
	}

	rawGroups, ok := doc["fieldgroups"]
	if !ok {
		return ex, nil
	}
	groupList, ok := asList(rawGroups)
	if !ok {
		return nil, domain.Configf(file, `field "fieldgroups" must be a list`)
	}

	seenKeys := map[string]bool{}
	for g, rawGroup := range groupList {
		groupDoc, ok := asMap(rawGroup)
		if !ok {
			return nil, domain.Configf(file, "field group %d is not a mapping", g)
		}
		group, err := parseFieldGroup(file, groupDoc, g, seenKeys)
		if err != nil {
			return nil, err
		}
		ex.Groups = append(ex.Groups, group)
	}
	return ex, nil
}

func parseFieldGroup(file string, doc map[string]any, ordinal int, seenKeys map[string]bool) (domain.FieldGroup, error) {
	group := domain.FieldGroup{
		Name:                 fmt.Sprintf("group_%d", ordinal),
		Title:                getString(doc, "title"),
		GroupErrors:          getBool(doc, "group_errors"),
		ResampleAfterAttempt: boolOrDefault(doc, "resample_after_attempt", true),
	}

	rawFields, ok := doc["fields"]
	if !ok {
		return group, domain.Configf(file, `required field "fields" missing from field group %q`, group.Name)
	}
	fieldList, ok := asList(rawFields)
	if !ok {
		return group, domain.Configf(file, `field "fields" of group %q must be a list`, group.Name)
	}

	for _, rawField := range fieldList {
		fieldDoc, ok := asMap(rawField)
		if !ok {
			return group, domain.Configf(file, "field in group %q is not a mapping", group.Name)
		}
		field, err := parseField(file, fieldDoc, group.Name, seenKeys)
		if err != nil {
			return group, err
		}
		group.Fields = append(group.Fields, field)
	}

	if n, ok := getInt(doc, "pick_randomly"); ok {
		if n < 1 || n > len(group.Fields) {
			return group, domain.Configf(file, "pick_randomly %d out of range for the %d fields of group %q",
				n, len(group.Fields), group.Name)
		}
		group.PickRandomly = n
	}
	return group, nil
}

func parseField(file string, doc map[string]any, groupName string, seenKeys map[string]bool) (domain.FieldSpec, error) {
	typeName := getString(doc, "type")
	if typeName == "" {
		return domain.FieldSpec{}, domain.Configf(file, `required field "type" missing from field configuration in group %q`, groupName)
	}
	kind, ok := domain.ParseFieldKind(typeName)
	if !ok {
		return domain.FieldSpec{}, domain.Configf(file, "unknown field type %q", typeName)
	}

	field := domain.FieldSpec{
		Kind:                 kind,
		Key:                  getString(doc, "key"),
		Title:                getString(doc, "title"),
		Required:             getBool(doc, "required"),
		PartialPoints:        getBool(doc, "partial_points"),
		CompareMethod:        getString(doc, "compare_method"),
		Correct:              getString(doc, "correct"),
		Regex:                getString(doc, "regex"),
		Hint:                 getString(doc, "hint"),
		ResampleAfterAttempt: boolOrDefault(doc, "resample_after_attempt", true),
	}
	if field.Key != "" {
		if seenKeys[field.Key] {
			return field, domain.Configf(file, "duplicate field key %q", field.Key)
		}
		seenKeys[field.Key] = true
	}
	if p, ok := getInt(doc, "points"); ok {
		field.Points = p
	}
	if _, err := compare.Parse(field.CompareMethod); err != nil {
		return field, domain.Configf(file, "field %q: %v", field.Key, err)
	}

	if rawOpts, ok := doc["options"]; ok {
		optList, ok := asList(rawOpts)
		if !ok {
			return field, domain.Configf(file, `field "options" must be a list`)
		}
		for _, rawOpt := range optList {
			optDoc, ok := asMap(rawOpt)
			if !ok {
				return field, domain.Configf(file, "option is not a mapping")
			}
			field.Options = append(field.Options, domain.OptionSpec{
				Value:    getString(optDoc, "value"),
				Label:    getString(optDoc, "label"),
				Correct:  parseCorrectness(optDoc["correct"]),
				Selected: getBool(optDoc, "selected") || getBool(optDoc, "initial"),
				Hint:     getString(optDoc, "hint"),
			})
		}
	}

	if k, ok := getInt(doc, "randomized"); ok {
		if kind != domain.FieldCheckbox {
			return field, domain.Configf(file, "randomized options are only supported on checkbox fields, not %q", kind)
		}
		if k < 1 || k > len(field.Options) {
			return field, domain.Configf(file, "randomized %d out of range for the %d options of field %q",
				k, len(field.Options), field.Key)
		}
		field.Randomized = k
		if cc, ok := getInt(doc, "correct_count"); ok {
			correct, incorrect := 0, 0
			for _, opt := range field.Options {
				if opt.Correct == domain.CorrectYes {
					correct++
				} else if opt.Correct == domain.CorrectNo {
					incorrect++
				}
			}
			if cc > correct || k-cc > incorrect {
				return field, domain.Configf(file,
					"correct_count %d does not fit a sample of %d from %d correct and %d incorrect options",
					cc, k, correct, incorrect)
			}
			field.CorrectCount = cc
			field.HasCorrectCount = true
		}
	}

	if rawRows, ok := doc["rows"]; ok {
		rowList, ok := asList(rawRows)
		if !ok {
			return field, domain.Configf(file, `field "rows" must be a list`)
		}
		for _, rawRow := range rowList {
			rowDoc, ok := asMap(rawRow)
			if !ok {
				return field, domain.Configf(file, "table row is not a mapping")
			}
			row := domain.TableRow{
				Key:   getString(rowDoc, "key"),
				Label: getString(rowDoc, "label"),
				Hint:  getString(rowDoc, "hint"),
			}
			if p, ok := getInt(rowDoc, "points"); ok {
				row.Points = p
			}
			if rawCorrect, ok := rowDoc["correct_options"]; ok {
				correctList, ok := asList(rawCorrect)
				if !ok {
					return field, domain.Configf(file, `row field "correct_options" must be a list`)
				}
				for _, c := range correctList {
					row.CorrectOptions = append(row.CorrectOptions, parseCorrectness(c))
				}
			}
			field.Rows = append(field.Rows, row)
		}
	}

	if rawFeedback, ok := doc["feedback"]; ok {
		fbList, ok := asList(rawFeedback)
		if !ok {
			return field, domain.Configf(file, `field "feedback" must be a list of rules`)
		}
		for _, rawRule := range fbList {
			ruleDoc, ok := asMap(rawRule)
			if !ok {
				return field, domain.Configf(file, "feedback rule is not a mapping")
			}
			field.Feedback = append(field.Feedback, domain.FeedbackRule{
				Value:         getString(ruleDoc, "value"),
				Label:         getString(ruleDoc, "label"),
				Not:           getBool(ruleDoc, "not"),
				CompareRegexp: getBool(ruleDoc, "compare_regexp"),
			})
		}
	}
	return field, nil
}

// parseCorrectness maps a config value to the tri-state marker: true, false
// or the string "neutral".
func parseCorrectness(v any) domain.Correctness {
	if s, ok := v.(string); ok && s == "neutral" {
		return domain.CorrectNeutral
	}
	if b, ok := v.(bool); ok && b {
		return domain.CorrectYes
	}
	return domain.CorrectNo
}

func boolOrDefault(m map[string]any, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := asBool(v); ok {
			return b
		}
	}
	return def
}
