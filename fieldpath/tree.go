package fieldpath

import (
	"reflect"
	"strconv"
)

// Get reads the node addressed by path. Missing intermediate nodes read as
// absent rather than failing.
func Get(root any, path string) (any, bool) {
	return GetSegments(root, Parse(path))
}

// GetSegments is Get for an already parsed path.
func GetSegments(root any, segs []Segment) (any, bool) {
	cur := root
	for _, s := range segs {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[s.String()]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, ok := sliceIndex(s)
			if !ok || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Value returns the node at path or nil when it is absent.
func Value(root any, path string) any {
	v, _ := Get(root, path)
	return v
}

// Set writes v at path inside root, creating intermediate containers as needed:
// a []any when the following segment is an index, a map[string]any otherwise.
// Setting the empty path replaces the content of root when v is a map.
func Set(root map[string]any, path string, v any) {
	SetSegments(root, Parse(path), v)
}

// SetSegments is Set for an already parsed path.
func SetSegments(root map[string]any, segs []Segment, v any) {
	if root == nil {
		return
	}
	if len(segs) == 0 {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		if sameMap(root, m) {
			return
		}
		for k := range root {
			delete(root, k)
		}
		for k, vv := range m {
			root[k] = vv
		}
		return
	}
	setAt(root, segs, v)
}

// Put is Set for an arbitrary root node; it returns the (possibly new) root.
func Put(root any, path string, v any) any {
	segs := Parse(path)
	if len(segs) == 0 {
		return v
	}
	return setAt(root, segs, v)
}

func setAt(node any, segs []Segment, v any) any {
	if len(segs) == 0 {
		return v
	}
	s := segs[0]
	switch n := node.(type) {
	case map[string]any:
		k := s.String()
		n[k] = setAt(n[k], segs[1:], v)
		return n
	case []any:
		i, ok := sliceIndex(s)
		if !ok {
			m := sliceToMap(n)
			m[s.Key] = setAt(nil, segs[1:], v)
			return m
		}
		for len(n) <= i {
			n = append(n, nil)
		}
		n[i] = setAt(n[i], segs[1:], v)
		return n
	default:
		if s.IsIndex {
			arr := make([]any, s.Index+1)
			arr[s.Index] = setAt(nil, segs[1:], v)
			return arr
		}
		return map[string]any{s.Key: setAt(nil, segs[1:], v)}
	}
}

// Unset removes the node at path. Parents left empty by the removal (maps without
// keys, slices holding only nil) are removed as well. Array slots are cleared, not
// spliced, so sibling indices stay stable.
func Unset(root map[string]any, path string) {
	segs := Parse(path)
	if len(segs) == 0 || root == nil {
		return
	}
	unsetAt(root, segs)
}

// unsetAt returns whether node became empty.
func unsetAt(node any, segs []Segment) bool {
	s := segs[0]
	switch n := node.(type) {
	case map[string]any:
		k := s.String()
		child, ok := n[k]
		if !ok {
			return false
		}
		if len(segs) == 1 || unsetAt(child, segs[1:]) {
			delete(n, k)
		}
		return len(n) == 0
	case []any:
		i, ok := sliceIndex(s)
		if !ok || i >= len(n) {
			return false
		}
		if len(segs) == 1 || unsetAt(n[i], segs[1:]) {
			n[i] = nil
		}
		return allNil(n)
	default:
		return false
	}
}

// Prune removes empty containers at and above path, the way Unset does after
// removing a leaf.
func Prune(root map[string]any, path string) {
	segs := Parse(path)
	for len(segs) > 0 {
		v, ok := GetSegments(root, segs)
		if !ok || !IsEmptyContainer(v) {
			return
		}
		unsetAt(root, segs)
		segs = segs[:len(segs)-1]
	}
}

// IsEmptyContainer reports whether v is a map without keys or a slice of nils.
func IsEmptyContainer(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) == 0
	case []any:
		return allNil(t)
	default:
		return false
	}
}

func allNil(s []any) bool {
	for _, v := range s {
		if v != nil {
			return false
		}
	}
	return true
}

func sliceIndex(s Segment) (int, bool) {
	if s.IsIndex {
		return s.Index, true
	}
	n, err := strconv.Atoi(s.Key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func sliceToMap(s []any) map[string]any {
	m := make(map[string]any, len(s)+1)
	for i, v := range s {
		if v != nil {
			m[strconv.Itoa(i)] = v
		}
	}
	return m
}

func sameMap(a, b map[string]any) bool {
	return reflect.ValueOf(a).UnsafePointer() == reflect.ValueOf(b).UnsafePointer()
}
