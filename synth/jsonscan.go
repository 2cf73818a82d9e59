package synth

import (
	"bytes"
	"encoding/json"
	"strings"
)

// topLevelValues returns every complete JSON value in raw that is not nested
// inside another object or array and that keep accepts. Surrounding prose,
// broken fragments and values keep rejects are skipped.
func topLevelValues(raw string, keep func(json.RawMessage) bool, limit int) []json.RawMessage {
	var values []json.RawMessage
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' && raw[i] != '[' {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(raw[i:]))
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			continue
		}
		i += int(dec.InputOffset()) - 1

		if !keep(v) {
			continue
		}
		values = append(values, v)
		if limit > 0 && len(values) == limit {
			break
		}
	}
	return values
}

// objectWithAny accepts JSON objects carrying at least one of keys.
func objectWithAny(keys ...string) func(json.RawMessage) bool {
	return func(v json.RawMessage) bool {
		if v[0] != '{' {
			return false
		}
		m, ok := fields(v)
		if !ok {
			return false
		}
		for _, k := range keys {
			if _, ok := m[k]; ok {
				return true
			}
		}
		return false
	}
}

// arrayOfObjects accepts an empty array or one holding at least one object.
func arrayOfObjects(v json.RawMessage) bool {
	if v[0] != '[' {
		return false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return false
	}
	if len(items) == 0 {
		return true
	}
	for _, it := range items {
		if len(it) > 0 && it[0] == '{' {
			return true
		}
	}
	return false
}

// fields decodes a JSON object into its raw members.
func fields(v json.RawMessage) (map[string]json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(v, &m); err != nil {
		return nil, false
	}
	return m, true
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func stringField(m map[string]json.RawMessage, key string) (string, bool) {
	v, ok := m[key]
	if !ok || isNull(v) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// intField accepts JSON numbers with an integral value.
func intField(m map[string]json.RawMessage, key string) (int, bool) {
	v, ok := m[key]
	if !ok || isNull(v) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, false
	}
	if f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func boolField(m map[string]json.RawMessage, key string) (bool, bool) {
	v, ok := m[key]
	if !ok || isNull(v) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, false
	}
	return b, true
}
