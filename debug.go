package hierlock

import (
	"fmt"
	"sort"
	"strings"
)

// DebugStruct is implemented by values that loggers
// should render field by field rather than as a whole.
//
// Fields may return nil, in which case the value is
// rendered as is.
type DebugStruct interface {
	Fields() map[string]any
}

// JoinDebugStructFields renders the fields of s as
// "key: value" pairs sorted by key.
func JoinDebugStructFields(s DebugStruct) string {
	m := s.Fields()
	if m == nil {
		return ""
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fields := make([]string, len(keys))
	for i, key := range keys {
		fields[i] = fmt.Sprintf("%s: %v", key, m[key])
	}
	return strings.Join(fields, ", ")
}
