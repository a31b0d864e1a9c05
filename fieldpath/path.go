// Package fieldpath parses and renders field paths and reads/writes any-trees by path.
//
// A path uses '.' for object nesting and bare decimal segments for array indices
// ("items.0.name"). Bracket syntax is accepted as well: items[0] is an index, while
// items["0"] is the string key "0". The distinction survives Join, so
// Parse(Join(segs)) always yields segs again.
//
// Trees are the shape produced by JSON decoding: map[string]any for objects, []any
// for arrays and scalars at the leaves.
package fieldpath

import (
	"strconv"
	"strings"
)

// Segment is one step of a path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns an object-key segment.
func Key(k string) Segment { return Segment{Key: k} }

// Index returns an array-index segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// String renders the segment as it appears inside a path.
func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Parse splits path into segments. It never fails: malformed bracket syntax is
// read as a literal key and empty dotted segments are skipped. The empty path
// denotes the whole tree and yields no segments.
func Parse(path string) []Segment {
	if path == "" {
		return nil
	}
	segs := make([]Segment, 0, strings.Count(path, ".")+1)
	var tok strings.Builder
	flush := func() {
		if tok.Len() == 0 {
			return
		}
		segs = append(segs, dotted(tok.String()))
		tok.Reset()
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch c {
		case '.':
			flush()
		case '[':
			flush()
			seg, next, ok := bracket(path, i)
			if !ok {
				// unterminated: keep the remainder verbatim
				segs = append(segs, Key(path[i:]))
				return segs
			}
			segs = append(segs, seg)
			i = next
		default:
			tok.WriteByte(c)
		}
	}
	flush()
	return segs
}

// dotted interprets an unquoted token: canonical decimals are indices.
func dotted(tok string) Segment {
	if n, ok := canonicalIndex(tok); ok {
		return Index(n)
	}
	return Key(tok)
}

// bracket parses the bracket expression starting at path[start] == '['. It returns
// the segment and the index of the closing ']'.
func bracket(path string, start int) (Segment, int, bool) {
	i := start + 1
	if i >= len(path) {
		return Segment{}, 0, false
	}
	if q := path[i]; q == '"' || q == '\'' {
		var b strings.Builder
		for j := i + 1; j < len(path); j++ {
			c := path[j]
			if c == '\\' && j+1 < len(path) {
				b.WriteByte(path[j+1])
				j++
				continue
			}
			if c == q {
				if j+1 < len(path) && path[j+1] == ']' {
					return Key(b.String()), j + 1, true
				}
				return Segment{}, 0, false
			}
			b.WriteByte(c)
		}
		return Segment{}, 0, false
	}
	end := strings.IndexByte(path[i:], ']')
	if end < 0 {
		return Segment{}, 0, false
	}
	return dotted(path[i : i+end]), i + end, true
}

func canonicalIndex(s string) (int, bool) {
	if s == "" || len(s) > 18 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Join renders segments back into a path. String keys that would otherwise be
// read as indices, or that contain path syntax, are written in quoted bracket form.
func Join(segs []Segment) string {
	var b strings.Builder
	for i, s := range segs {
		if s.IsIndex {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(strconv.Itoa(s.Index))
			continue
		}
		if needsQuote(s.Key) {
			b.WriteString(`["`)
			for j := 0; j < len(s.Key); j++ {
				if c := s.Key[j]; c == '"' || c == '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(s.Key[j])
			}
			b.WriteString(`"]`)
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

func needsQuote(k string) bool {
	if k == "" {
		return true
	}
	if _, ok := canonicalIndex(k); ok {
		return true
	}
	if k[0] >= '0' && k[0] <= '9' {
		// "01" and friends are keys; quote them so they stay keys
		allDigits := true
		for i := 0; i < len(k); i++ {
			if k[i] < '0' || k[i] > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return true
		}
	}
	return strings.ContainsAny(k, `.[]"'\`)
}

// Normalize returns the canonical rendering of path, so that "a[0].b" and "a.0.b"
// compare equal.
func Normalize(path string) string { return Join(Parse(path)) }

// Append extends path with additional segments.
func Append(path string, more ...Segment) string {
	segs := Parse(path)
	return Join(append(segs, more...))
}

// AppendIndex extends path with an array index.
func AppendIndex(path string, i int) string { return Append(path, Index(i)) }

// Parent returns the path without its last segment and that last segment.
// The root has no parent; ok is false in that case.
func Parent(path string) (parent string, last Segment, ok bool) {
	segs := Parse(path)
	if len(segs) == 0 {
		return "", Segment{}, false
	}
	return Join(segs[:len(segs)-1]), segs[len(segs)-1], true
}

// HasPrefix reports whether prefix addresses path itself or one of its ancestors.
// Comparison is segment-wise, so "ab" is never under "a".
func HasPrefix(path, prefix string) bool {
	return segmentsHavePrefix(Parse(path), Parse(prefix))
}

func segmentsHavePrefix(segs, prefix []Segment) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i := range prefix {
		if segs[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two paths address the same slot.
func Equal(a, b string) bool {
	as, bs := Parse(a), Parse(b)
	return len(as) == len(bs) && segmentsHavePrefix(as, bs)
}

// Matches reports whether a change at changed concerns an observer of watch.
// With exact set only the same path matches. Otherwise ancestors and descendants
// match as well: a watcher of "a" sees "a.b" and "a.0", and a watcher of "a.0.b"
// sees a structural change of "a". The empty watch path observes everything.
func Matches(watch, changed string, exact bool) bool {
	ws, cs := Parse(watch), Parse(changed)
	if exact {
		return len(ws) == len(cs) && segmentsHavePrefix(ws, cs)
	}
	return segmentsHavePrefix(cs, ws) || segmentsHavePrefix(ws, cs)
}

// Rebase replaces the leading oldPrefix of path with newPrefix. It returns path
// unchanged when oldPrefix does not address path or one of its ancestors.
func Rebase(path, oldPrefix, newPrefix string) string {
	segs, old := Parse(path), Parse(oldPrefix)
	if !segmentsHavePrefix(segs, old) {
		return path
	}
	return Join(append(Parse(newPrefix), segs[len(old):]...))
}
