package models

import (
	"encoding/json"
	"strings"
)

// RequiredLocales lists the locale keys every LocalizedText must carry.
var RequiredLocales = []string{"en", "ar"}

// LocalizedText is a display name in each required locale.
type LocalizedText struct {
	En string
	Ar string
}

// NewLocalizedText validates that every required locale is non-blank.
func NewLocalizedText(en, ar string) (LocalizedText, error) {
	t := LocalizedText{En: strings.TrimSpace(en), Ar: strings.TrimSpace(ar)}
	if err := t.Validate(); err != nil {
		return LocalizedText{}, err
	}
	return t, nil
}

func (t LocalizedText) Validate() error {
	if t.En == "" {
		return NewValidationError("name.en", "locale en is required")
	}
	if t.Ar == "" {
		return NewValidationError("name.ar", "locale ar is required")
	}
	return nil
}

// Get returns the text for locale, falling back to English.
func (t LocalizedText) Get(locale string) string {
	if locale == "ar" {
		return t.Ar
	}
	return t.En
}

func (t LocalizedText) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"en": t.En, "ar": t.Ar})
}

// UnmarshalJSON rejects unknown locale keys and missing required ones.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if key != "en" && key != "ar" {
			return NewValidationError("name."+key, "unsupported locale")
		}
	}
	parsed, err := NewLocalizedText(raw["en"], raw["ar"])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
