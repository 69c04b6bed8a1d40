package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Table is a typed view over one registered table. Records are decoded into
// a fresh value on every read so callers never share cached state.
type Table[T any] struct {
	store *Store
	name  string
}

// Register registers name on s and returns a typed handle for it. It panics
// with a ConfigurationError if *T does not implement Record or if T declares
// a field whose JSON name is a reserved tag key.
func Register[T any](ctx context.Context, s *Store, name string) (*Table[T], error) {
	if _, ok := any(new(T)).(Record); !ok {
		panic(&ConfigurationError{Table: name, Reason: fmt.Sprintf("%T does not implement storage.Record", new(T))})
	}
	if field, ok := reservedField(reflect.TypeOf((*T)(nil)).Elem()); ok {
		panic(&ConfigurationError{Table: name, Reason: fmt.Sprintf("field %s uses a reserved tag key", field)})
	}
	if err := s.Register(ctx, name); err != nil {
		return nil, err
	}
	return &Table[T]{store: s, name: name}, nil
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

// Get returns the record stored under id, or nil if there is none.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := t.store.load(ctx, t.name, id)
	if err != nil || data == nil {
		return nil, err
	}
	rec := new(T)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", t.name, id, err)
	}
	return rec, nil
}

// GetAll returns every record in the table.
func (t *Table[T]) GetAll(ctx context.Context) ([]*T, error) {
	keys, err := t.store.keys(ctx, t.name)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(keys))
	for _, key := range keys {
		rec, err := t.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Write touches the record's timestamps and persists it under id.
func (t *Table[T]) Write(ctx context.Context, id string, rec *T) error {
	any(rec).(Record).Touch(t.store.now())
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", t.name, id, err)
	}
	return t.store.save(ctx, t.name, id, data)
}

// Delete removes the record stored under id.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	return t.store.Delete(ctx, t.name, id)
}

// reservedField walks exported struct fields, including embedded structs,
// looking for a JSON name equal to a reserved tag key.
func reservedField(typ reflect.Type) (string, bool) {
	if typ.Kind() != reflect.Struct {
		return "", false
	}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if field.Anonymous && name == "" {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if f, ok := reservedField(ft); ok {
				return f, true
			}
			continue
		}
		if name == "" {
			name = field.Name
		}
		if isReservedKey(name) {
			return field.Name, true
		}
	}
	return "", false
}
