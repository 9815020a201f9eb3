package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/docapi/internal/web/query"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CastFilter converts the string operands of a compiled filter into the
// declared types of their fields. Untyped fields are left untouched; operands
// of $exists and $regex are never cast.
func (m *Model) CastFilter(f query.Filter) (query.Filter, error) {
	out := make(query.Filter, len(f))
	for path, cond := range f {
		v, err := m.castCondition(m.FieldType(path), cond)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidValue, path, err)
		}
		out[path] = v
	}
	return out, nil
}

func (m *Model) castCondition(t FieldType, cond any) (any, error) {
	ops, ok := cond.(query.Ops)
	if !ok {
		return castValue(t, cond)
	}

	out := make(query.Ops, len(ops))
	for op, operand := range ops {
		switch op {
		case query.OpExists, query.OpRegex:
			out[op] = operand
		case query.OpIn:
			list, isList := operand.([]any)
			if !isList {
				v, err := m.castCondition(t, operand)
				if err != nil {
					return nil, err
				}
				out[op] = v
				continue
			}
			cast := make([]any, len(list))
			for i, el := range list {
				v, err := m.castCondition(t, el)
				if err != nil {
					return nil, err
				}
				cast[i] = v
			}
			out[op] = cast
		default:
			v, err := m.castCondition(t, operand)
			if err != nil {
				return nil, err
			}
			out[op] = v
		}
	}
	return out, nil
}

// castValue converts a string into t. Values that are not strings pass
// through.
func castValue(t FieldType, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}

	switch t {
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	case TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	case TypeDate:
		return ParseDate(s)
	}
	return s, nil
}

// ParseDate accepts RFC 3339 timestamps, plain dates and milliseconds since
// the epoch
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%q is not a date", s)
}

// CastDocument converts the top-level date fields of doc from their JSON
// string form into time.Time so that stored documents compare with cast
// filters. The document is modified in place.
func (m *Model) CastDocument(doc Document) error {
	for path, t := range m.Fields {
		if t != TypeDate {
			continue
		}
		s, ok := doc[path].(string)
		if !ok {
			continue
		}
		d, err := ParseDate(s)
		if err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidValue, path, err)
		}
		doc[path] = d
	}
	return nil
}
