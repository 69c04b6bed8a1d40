package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reserved tag keys. A tagged value is written as a single-key object whose
// key is one of these, so record fields must never use them as names.
const (
	TagDate = "$date"
	TagSet  = "$set"
)

// ErrReservedKey is returned when a plain object would be indistinguishable
// from a tagged value.
var ErrReservedKey = errors.New("reserved tag key used as field name")

// Kind identifies which variant a value encodes as.
type Kind int

const (
	KindPlain Kind = iota
	KindDate
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindSet:
		return "set"
	default:
		return "plain"
	}
}

// SetElements is the decoded form of a tagged set inside a generic document.
type SetElements []any

// setValue is implemented by Set[T] so the generic encoder can recognise it.
type setValue interface {
	elements() []any
}

// KindOf classifies a value into one of the closed set of variants.
func KindOf(v any) Kind {
	switch v.(type) {
	case time.Time, *time.Time, Date, *Date:
		return KindDate
	case setValue, SetElements:
		return KindSet
	default:
		return KindPlain
	}
}

// Encode converts a generic value tree into its JSON-ready tagged form.
// Dates become {"$date": "<RFC 3339>"} and sets become {"$set": [...]}.
func Encode(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return encodeDate(val), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return encodeDate(*val), nil
	case Date:
		return encodeDate(val.Time), nil
	case *Date:
		if val == nil {
			return nil, nil
		}
		return encodeDate(val.Time), nil
	case setValue:
		return encodeSet(val.elements())
	case SetElements:
		return encodeSet(val)
	case map[string]any:
		if err := checkReserved(val); err != nil {
			return nil, err
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			enc, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = enc
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			enc, err := Encode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	default:
		return val, nil
	}
}

// Decode reverses Encode on a tree produced by json.Unmarshal into any.
func Decode(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if tag, payload, ok := tagOf(val); ok {
			switch tag {
			case TagDate:
				return decodeDate(payload)
			case TagSet:
				return decodeSet(payload)
			}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			dec, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = dec
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			dec, err := Decode(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = dec
		}
		return out, nil
	default:
		return val, nil
	}
}

// MarshalDocument encodes a generic document to its on-disk JSON form.
func MarshalDocument(doc map[string]any) ([]byte, error) {
	enc, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(enc, "", "  ")
}

// UnmarshalDocument parses on-disk JSON into a generic document with tagged
// values revived.
func UnmarshalDocument(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	dec, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	doc, _ := dec.(map[string]any)
	return doc, nil
}

func encodeDate(t time.Time) map[string]any {
	return map[string]any{TagDate: t.UTC().Format(time.RFC3339Nano)}
}

func decodeDate(payload any) (time.Time, error) {
	s, ok := payload.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s payload must be a string, got %T", TagDate, payload)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s payload: %w", TagDate, err)
	}
	return t, nil
}

func encodeSet(elems []any) (map[string]any, error) {
	out := make([]any, len(elems))
	for i, item := range elems {
		enc, err := Encode(item)
		if err != nil {
			return nil, fmt.Errorf("set element %d: %w", i, err)
		}
		out[i] = enc
	}
	return map[string]any{TagSet: out}, nil
}

func decodeSet(payload any) (SetElements, error) {
	items, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("%s payload must be an array, got %T", TagSet, payload)
	}
	out := make(SetElements, len(items))
	for i, item := range items {
		dec, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("set element %d: %w", i, err)
		}
		out[i] = dec
	}
	return out, nil
}

// tagOf reports whether m is a tagged value wrapper.
func tagOf(m map[string]any) (string, any, bool) {
	if len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		if isReservedKey(k) {
			return k, v, true
		}
	}
	return "", nil, false
}

func checkReserved(m map[string]any) error {
	for k := range m {
		if isReservedKey(k) {
			return fmt.Errorf("%w: %q", ErrReservedKey, k)
		}
	}
	return nil
}

func isReservedKey(k string) bool {
	return k == TagDate || k == TagSet
}
