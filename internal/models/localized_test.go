package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalizedText(t *testing.T) {
	text, err := NewLocalizedText(" Margherita ", "مارغريتا")
	require.NoError(t, err)
	assert.Equal(t, "Margherita", text.En)
	assert.Equal(t, "مارغريتا", text.Get("ar"))
	assert.Equal(t, "Margherita", text.Get("fr"))

	_, err = NewLocalizedText("Margherita", "  ")
	assert.True(t, IsValidation(err))

	_, err = NewLocalizedText("", "مارغريتا")
	assert.True(t, IsValidation(err))
}

func TestLocalizedText_JSON(t *testing.T) {
	var text LocalizedText
	require.NoError(t, json.Unmarshal([]byte(`{"en":"Latte","ar":"لاتيه"}`), &text))
	assert.Equal(t, "Latte", text.En)

	out, err := json.Marshal(text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"en":"Latte","ar":"لاتيه"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"en":"Latte"}`), &text))
	assert.Error(t, json.Unmarshal([]byte(`{"en":"Latte","ar":"لاتيه","fr":"Café"}`), &text))
	assert.Error(t, json.Unmarshal([]byte(`"Latte"`), &text))
}
