package storage

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Date is a time.Time persisted as {"$date": "<RFC 3339>"}.
type Date struct {
	time.Time
}

// NewDate wraps t normalised to UTC.
func NewDate(t time.Time) Date {
	return Date{Time: t.UTC()}
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodeDate(d.Time))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var wrapper map[string]any
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	tag, payload, ok := tagOf(wrapper)
	if !ok || tag != TagDate {
		return fmt.Errorf("date: expected %s wrapper", TagDate)
	}
	t, err := decodeDate(payload)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Set is an unordered collection persisted as {"$set": [...]} with its
// elements in ascending order.
type Set[T cmp.Ordered] map[T]struct{}

// NewSet creates a set holding items.
func NewSet[T cmp.Ordered](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts item into the set.
func (s Set[T]) Add(item T) {
	s[item] = struct{}{}
}

// Remove deletes item from the set.
func (s Set[T]) Remove(item T) {
	delete(s, item)
}

// Has reports whether item is in the set.
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// Items returns the elements in ascending order.
func (s Set[T]) Items() []T {
	out := make([]T, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

func (s Set[T]) elements() []any {
	items := s.Items()
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// MarshalJSON implements json.Marshaler
func (s Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]T{TagSet: s.Items()})
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	raw, ok := wrapper[TagSet]
	if !ok || len(wrapper) != 1 {
		return fmt.Errorf("set: expected %s wrapper", TagSet)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	*s = NewSet(items...)
	return nil
}

// Record is implemented by every value persisted through a Table. Embedding
// Timestamps satisfies it.
type Record interface {
	Touch(now time.Time)
}

// Timestamps holds the bookkeeping fields maintained by Table.Write.
type Timestamps struct {
	CreatedAt *Date `json:"createdAt,omitempty"`
	UpdatedAt *Date `json:"updatedAt,omitempty"`
}

// Touch sets CreatedAt on first write and always refreshes UpdatedAt.
func (ts *Timestamps) Touch(now time.Time) {
	d := NewDate(now)
	if ts.CreatedAt == nil {
		created := d
		ts.CreatedAt = &created
	}
	ts.UpdatedAt = &d
}
