// Package i18n provides the localized hint and feedback phrases the grading
// engine attaches to results. Translations are embedded so the binary needs
// no locale files on disk.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Messages localizes grading phrases by language code. Unknown languages
// fall back to English.
type Messages struct {
	bundle *i18n.Bundle
}

// New loads the embedded translation bundle.
func New() (*Messages, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
	}
	return &Messages{bundle: bundle}, nil
}

// T translates a message ID into the given language.
func (m *Messages) T(lang, msgID string) string {
	loc := i18n.NewLocalizer(m.bundle, lang)
	s, err := loc.Localize(&i18n.LocalizeConfig{MessageID: msgID})
	if err != nil {
		return msgID
	}
	return s
}

// Message IDs used by the grading engine.
const (
	MsgMultipleSelectable = "multiple_choices_selectable"
	MsgMultipleCorrect    = "multiple_correct_accepted"
	MsgCorrectParts       = "correct_parts_prefix"
)
