package diffcache

import (
	"encoding/json"
	"fmt"
)

// Tombstone records that a key's computation exceeded a size limit. It
// carries no payload.
type Tombstone struct{}

// Entry is one cached value: either a payload or a tombstone.
type Entry[V any] struct {
	Value     V
	Tombstone *Tombstone
}

// ValueEntry wraps v.
func ValueEntry[V any](v V) Entry[V] { return Entry[V]{Value: v} }

// TombstoneEntry returns an entry holding only a tombstone.
func TombstoneEntry[V any]() Entry[V] { return Entry[V]{Tombstone: &Tombstone{}} }

// IsTombstone reports whether e records an oversized result.
func (e Entry[V]) IsTombstone() bool { return e.Tombstone != nil }

const (
	kindValue     = "value"
	kindTombstone = "tombstone"
)

// envelope is the serialized form of an Entry:
//
//	{"kind":"tombstone"}
//	{"kind":"value","value":{...}}
type envelope struct {
	Kind  string          `json:"kind"`
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Marshal serializes e. Tombstones serialize to their kind alone.
func Marshal[V any](e Entry[V]) ([]byte, error) {
	return marshalEnvelope(e, "")
}

// Unmarshal is the inverse of Marshal.
func Unmarshal[V any](data []byte) (Entry[V], error) {
	e, _, err := unmarshalEnvelope[V](data)
	return e, err
}

func marshalEnvelope[V any](e Entry[V], key string) ([]byte, error) {
	env := envelope{Kind: kindTombstone, Key: key}
	if !e.IsTombstone() {
		raw, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal cache entry: %w", err)
		}
		env.Kind = kindValue
		env.Value = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

func unmarshalEnvelope[V any](data []byte) (Entry[V], string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Entry[V]{}, "", fmt.Errorf("unmarshal cache entry: %w", err)
	}
	switch env.Kind {
	case kindTombstone:
		return TombstoneEntry[V](), env.Key, nil
	case kindValue:
		var v V
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return Entry[V]{}, "", fmt.Errorf("unmarshal cache entry: %w", err)
		}
		return ValueEntry(v), env.Key, nil
	default:
		return Entry[V]{}, "", fmt.Errorf("unmarshal cache entry: unknown kind %q", env.Kind)
	}
}
