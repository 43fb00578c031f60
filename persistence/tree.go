package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const forbiddenKeyChars = ".#$[]"

// splitPath turns a slash separated path into its segments. Empty segments are dropped, so "", "/" and "//"
// all address the root.
func splitPath(path string) ([]string, error) {
	segs := make([]string, 0)
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if strings.ContainsAny(seg, forbiddenKeyChars) {
			return nil, fmt.Errorf("invalid path %q: key %q contains one of %q", path, seg, forbiddenKeyChars)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func joinPath(segs []string) string {
	return strings.Join(segs, "/")
}

func childKey(base, child string) string {
	if base == "" {
		return child
	}
	return base + "/" + child
}

// normalize converts an arbitrary Go value into the canonical tree form: objects are map[string]any, arrays are
// turned into objects keyed by index, nulls and empty objects are removed. It returns nil for an empty value.
func normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return objectify(decoded), nil
}

// objectify expects decoded JSON.
func objectify(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			if c := objectify(v); c != nil {
				out[k] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make(map[string]any, len(n))
		for i, v := range n {
			if c := objectify(v); c != nil {
				out[strconv.Itoa(i)] = c
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return n
	}
}

// setAt stores value (already in tree form) below root at segs and returns the new root.
func setAt(root any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	m, ok := root.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	child := setAt(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// materialize returns a deep copy of a tree-form node in the shape the realtime database hands out: objects whose
// keys are array indices come back as arrays.
func materialize(node any) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}
	if len(m) == 0 {
		return nil
	}
	if arr, ok := asArray(m); ok {
		return arr
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = materialize(v)
	}
	return out
}

// asArray applies the realtime database rule: every key is a non-negative integer and more than half of the
// indices up to the largest one are present.
func asArray(m map[string]any) ([]any, bool) {
	max := -1
	for k := range m {
		if k == "" || (len(k) > 1 && k[0] == '0') {
			return nil, false
		}
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, false
		}
		if i > max {
			max = i
		}
	}
	if max < 0 || max >= 2*len(m) {
		return nil, false
	}
	arr := make([]any, max+1)
	for k, v := range m {
		i, _ := strconv.Atoi(k)
		arr[i] = materialize(v)
	}
	return arr, true
}

// flatten writes one entry per scalar leaf of node, keyed by its full path below base.
func flatten(base string, node any, out map[string]string) error {
	if m, ok := node.(map[string]any); ok {
		for k, v := range m {
			if err := flatten(childKey(base, k), v, out); err != nil {
				return err
			}
		}
		return nil
	}
	if node == nil {
		return nil
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return err
	}
	out[base] = string(raw)
	return nil
}

// assemble rebuilds the subtree at base from its leaves. Leaves that do not hold valid JSON are skipped.
func assemble(base string, leaves map[string]string, logger hclog.Logger) any {
	keys := make([]string, 0, len(leaves))
	for k := range leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var root any
	for _, k := range keys {
		var leaf any
		if err := json.Unmarshal([]byte(leaves[k]), &leaf); err != nil {
			logger.Warn("skipping corrupted local value", "key", k, "error", err)
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(k, base), "/")
		if rel == "" {
			if _, isObject := root.(map[string]any); isObject {
				continue
			}
			root = objectify(leaf)
			continue
		}
		if _, isObject := root.(map[string]any); !isObject {
			root = nil
		}
		root = setAt(root, strings.Split(rel, "/"), objectify(leaf))
	}
	return materialize(root)
}
