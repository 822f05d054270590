package ledger

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// taskFields and ledgerFields have the same layout as Task and Ledger but no
// JSON methods, so they encode and decode the known members only.
type (
	taskFields   Task
	ledgerFields Ledger
)

var taskKeys = []string{"id", "name", "spec", "status", "priority", "agent"}

// UnmarshalJSON decodes the known members and keeps every other member
// verbatim.
func (t *Task) UnmarshalJSON(data []byte) error {
	var fields taskFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task(fields)
	t.extra = unknownMembers(raw, taskKeys)
	return nil
}

// MarshalJSON encodes the known members followed by any preserved ones.
func (t Task) MarshalJSON() ([]byte, error) {
	fields := taskFields(t)
	fields.extra = nil
	return appendMembers(fields, t.extra)
}

// MarshalJSON encodes "tasks" followed by any preserved top-level members.
func (l Ledger) MarshalJSON() ([]byte, error) {
	fields := ledgerFields(l)
	fields.extra = nil
	return appendMembers(fields, l.extra)
}

// unknownMembers drops the known keys from raw, matched case-insensitively
// like encoding/json does. Returns nil when nothing is left.
func unknownMembers(raw map[string]json.RawMessage, known []string) map[string]json.RawMessage {
	for key := range raw {
		for _, k := range known {
			if strings.EqualFold(key, k) {
				delete(raw, key)
				break
			}
		}
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// appendMembers encodes v, which must encode as a non-empty object, and
// splices extra into it in key order.
func appendMembers(v any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := encodeNoEscape(v)
	if err != nil || len(extra) == 0 {
		return base, err
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		name, err := encodeNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeNoEscape marshals v without HTML escaping, so descriptions round-trip
// byte for byte.
func encodeNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
