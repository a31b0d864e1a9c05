package i18n_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/goform/i18n"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	t.Cleanup(func() { i18n.SetLanguage("en") })

	assert.Equal(t, "required", i18n.T("required", nil))
	assert.Equal(t, "must be at least 3", i18n.T("min", map[string]string{"min": "3"}))
	assert.Equal(t, "must be at most", i18n.T("max", nil))

	i18n.SetLanguage("ja")
	assert.Equal(t, "必須項目です", i18n.T("required", nil))

	// unknown languages fall back to en
	i18n.SetLanguage("fr")
	assert.Equal(t, "required", i18n.T("required", nil))
}

func TestTranslator_UnknownTypeEchoes(t *testing.T) {
	assert.Equal(t, "custom_rule", i18n.Dict("en").Message("custom_rule", nil))
	assert.Equal(t, "custom_rule", i18n.Dict("ja").Message("custom_rule", nil))
}

type upper struct{}

func (upper) Message(typ string, _ map[string]string) string { return "E:" + typ }

func TestSetTranslator(t *testing.T) {
	i18n.SetTranslator(upper{})
	t.Cleanup(func() { i18n.SetTranslator(nil) })
	assert.Equal(t, "E:pattern", i18n.T("pattern", nil))

	i18n.SetTranslator(nil)
	assert.Equal(t, "does not match the expected format", i18n.T("pattern", nil))
}
