package goform

import "strings"

// StateKey names a piece of form state. Keys are bit flags and combine with |
// into a read-set.
type StateKey uint32

const (
	KeyValues StateKey = 1 << iota
	KeyErrors
	KeyDirtyFields
	KeyTouchedFields
	KeyValidatingFields
	KeyIsDirty
	KeyIsValid
	KeyIsValidating
	KeyIsSubmitting
	KeyIsSubmitted
	KeySubmitCount
	KeyIsSubmitSuccessful
	KeyIsLoading
	KeyDefaultValues

	keyEnd
)

// KeyAll subscribes to every key.
const KeyAll = keyEnd - 1

var keyNames = []string{
	"values",
	"errors",
	"dirtyFields",
	"touchedFields",
	"validatingFields",
	"isDirty",
	"isValid",
	"isValidating",
	"isSubmitting",
	"isSubmitted",
	"submitCount",
	"isSubmitSuccessful",
	"isLoading",
	"defaultValues",
}

// Has reports whether every key in o is present in k.
func (k StateKey) Has(o StateKey) bool { return k&o == o }

// Intersects reports whether k and o share a key.
func (k StateKey) Intersects(o StateKey) bool { return k&o != 0 }

func (k StateKey) String() string {
	if k == 0 {
		return ""
	}
	var parts []string
	for i, n := range keyNames {
		if k&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// ParseKey maps a state key name to its StateKey.
func ParseKey(name string) (StateKey, bool) {
	for i, n := range keyNames {
		if n == name {
			return 1 << i, true
		}
	}
	return 0, false
}
