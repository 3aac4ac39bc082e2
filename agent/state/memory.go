package state

import (
	"errors"
	"fmt"
	"sort"
)

// Memory is the flat slot namespace of one conversation. It is not safe for
// concurrent use; the Manager serializes access per conversation.
type Memory struct {
	values map[Name]Value
}

func NewMemory() *Memory {
	return &Memory{values: make(map[Name]Value, 8)}
}

func (m *Memory) ensure() {
	if m.values == nil {
		m.values = make(map[Name]Value, 8)
	}
}

func (m *Memory) Get(name Name) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[name]
	return v, ok
}

func (m *Memory) Has(name Name) bool {
	_, ok := m.Get(name)
	return ok
}

// Set validates v against the domain of name before storing it.
func (m *Memory) Set(name Name, v Value) error {
	if err := Validate(name, v); err != nil {
		return err
	}
	m.ensure()
	m.values[name] = v
	return nil
}

// SetIfAbsent stores v only when name has no value yet.
func (m *Memory) SetIfAbsent(name Name, v Value) (bool, error) {
	if m.Has(name) {
		return false, nil
	}
	if err := m.Set(name, v); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Delete(names ...Name) {
	if m == nil {
		return
	}
	for _, n := range names {
		delete(m.values, n)
	}
}

func (m *Memory) Reset() {
	m.values = make(map[Name]Value, 8)
}

func (m *Memory) Len() int {
	if m == nil {
		return 0
	}
	return len(m.values)
}

func (m *Memory) Text(name Name) (string, bool) {
	v, ok := m.Get(name)
	if !ok {
		return "", false
	}
	return v.Str()
}

func (m *Memory) Number(name Name) (float64, bool) {
	v, ok := m.Get(name)
	if !ok {
		return 0, false
	}
	return v.Num()
}

// Flag reports whether name holds boolean true.
func (m *Memory) Flag(name Name) bool {
	v, ok := m.Get(name)
	if !ok {
		return false
	}
	b, isBool := v.Flag()
	return isBool && b
}

// MergeResult reports what a Merge call wrote and what it dropped.
type MergeResult struct {
	Merged  []Name
	Dropped map[string]error
}

// Merge writes every valid entry of raw, overwriting existing values.
// Unknown keys and values outside their domain are dropped, never merged.
func (m *Memory) Merge(raw map[string]any, allowed ...Name) MergeResult {
	res := MergeResult{Dropped: map[string]error{}}
	if len(raw) == 0 {
		return res
	}

	allow := map[Name]bool{}
	for _, n := range allowed {
		allow[n] = true
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := Name(k)
		rv := raw[k]
		if rv == nil {
			continue
		}
		if len(allow) > 0 && !allow[name] {
			res.Dropped[k] = fmt.Errorf("%w: %q is not accepted here", ErrUnknownSlot, k)
			continue
		}
		v, err := Parse(name, rv)
		if err != nil {
			res.Dropped[k] = err
			continue
		}
		m.ensure()
		m.values[name] = v
		res.Merged = append(res.Merged, name)
	}
	return res
}

// Snapshot returns a copy of the memory as plain JSON-ready values.
func (m *Memory) Snapshot() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for k, v := range m.values {
		out[string(k)] = v.Any()
	}
	return out
}

func (m *Memory) Clone() *Memory {
	out := NewMemory()
	if m == nil {
		return out
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Restore rebuilds memory from a snapshot, rejecting invalid entries.
func Restore(snapshot map[string]any) (*Memory, error) {
	m := NewMemory()
	res := m.Merge(snapshot)
	if len(res.Dropped) == 0 {
		return m, nil
	}
	errs := make([]error, 0, len(res.Dropped))
	for _, err := range res.Dropped {
		errs = append(errs, err)
	}
	return m, errors.Join(errs...)
}
