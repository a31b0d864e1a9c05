package i18n

// Translator retrieves localized messages for error types ("required", "min",
// "validate", ...). data provides optional values to embed in the message (for
// example "min" or "field").
type Translator interface {
	Message(typ string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(typ string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch typ {
		case "required":
			return "必須項目です"
		case "min":
			return "値が小さすぎます"
		case "max":
			return "値が大きすぎます"
		case "minLength":
			return "短すぎます"
		case "maxLength":
			return "長すぎます"
		case "pattern":
			return "形式が不正です"
		case "validate":
			return "検証に失敗しました"
		case "validate_error":
			return "検証処理でエラーが発生しました"
		case "resolver_error":
			return "スキーマ検証でエラーが発生しました"
		}
	default: // "en"
		switch typ {
		case "required":
			return "required"
		case "min":
			return with("must be at least", data["min"])
		case "max":
			return with("must be at most", data["max"])
		case "minLength":
			return with("too short, minimum length", data["minLength"])
		case "maxLength":
			return with("too long, maximum length", data["maxLength"])
		case "pattern":
			return "does not match the expected format"
		case "validate":
			return "invalid value"
		case "validate_error":
			return "validation failed unexpectedly"
		case "resolver_error":
			return "schema validation failed unexpectedly"
		}
	}
	return typ
}

func with(msg, v string) string {
	if v == "" {
		return msg
	}
	return msg + " " + v
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// Dict returns the built-in dictionary translator for lang.
func Dict(lang string) Translator { return dictTranslator{lang: lang} }

// T fetches a message for the given type using the current Translator.
func T(typ string, data map[string]string) string { return currentTranslator.Message(typ, data) }
