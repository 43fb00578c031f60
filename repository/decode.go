package repository

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/WithoutFrost/Eternal-Paradise-Project/types"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
)

var presenceSetType = reflect.TypeOf(types.PresenceSet{})

// presenceKeys returns the ids held by a presence node. Objects map ids to a truthy flag. Arrays are either the
// plain id lists of older data or objects keyed by small integers, which the store hands back as arrays.
func presenceKeys(value any) []string {
	ids := make([]string, 0)
	switch v := value.(type) {
	case []any:
		for i, el := range v {
			if s, ok := el.(string); ok {
				ids = append(ids, s)
			} else if truthy(el) {
				ids = append(ids, strconv.Itoa(i))
			}
		}
	case map[string]any:
		for id, present := range v {
			if truthy(present) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// presenceHook accepts presence sets in their object form as well as the plain id arrays of older data.
func presenceHook(from, to reflect.Type, data any) (any, error) {
	if to != presenceSetType {
		return data, nil
	}
	switch data.(type) {
	case []any, map[string]any:
		return types.NewPresenceSet(presenceKeys(data)...), nil
	}
	return data, nil
}

// decode converts a value read from the store into out, a pointer to a domain type.
func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       presenceHook,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// children returns the child values of a collection node in key order. Collections keyed by small integers come
// back from the store as arrays; their nil holes are skipped.
func children(value any) []any {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return keyLess(keys[i], keys[j])
		})
		out := make([]any, 0, len(v))
		for _, k := range keys {
			out = append(out, v[k])
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, c := range v {
			if c != nil {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

// keyLess orders numeric keys numerically and everything else lexically after them.
func keyLess(a, b string) bool {
	ia, errA := strconv.Atoi(a)
	ib, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return ia < ib
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// decodeList decodes every child of a collection node. Children that do not decode are logged and skipped.
func decodeList[T any](value any, logger hclog.Logger) []T {
	out := make([]T, 0)
	for _, child := range children(value) {
		if _, ok := child.(map[string]any); !ok {
			logger.Warn("skipping malformed entry", "type", fmt.Sprintf("%T", child))
			continue
		}
		var item T
		if err := decode(child, &item); err != nil {
			logger.Warn("skipping malformed entry", "error", err)
			continue
		}
		out = append(out, item)
	}
	return out
}

// truthy follows the loose boolean reading older data relies on.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && !strings.EqualFold(t, "false")
	default:
		return true
	}
}
