package store

import (
	"regexp"
	"sort"

	"github.com/conduit-lang/docapi/internal/web/query"
)

// Match evaluates a compiled filter against a document in process. It is
// used by the drivers that cannot push filters down to the database.
//
// Semantics follow document databases: a literal matches equal values or an
// array containing the value, operators on a missing field fail except $ne
// and $exists:false, and every field of the filter must match.
func Match(doc Document, f query.Filter) bool {
	for path, cond := range f {
		v, found := Lookup(doc, path)
		if !matchCondition(v, found, cond) {
			return false
		}
	}
	return true
}

func matchCondition(v any, found bool, cond any) bool {
	if ops, ok := cond.(query.Ops); ok {
		return matchOps(v, found, ops)
	}
	return matchValue(v, found, cond)
}

// matchValue compares v with a literal. Operator operands go through here, so
// an Ops nested under an operator is a value, not a condition.
func matchValue(v any, found bool, cond any) bool {
	if !found {
		return cond == nil
	}
	if list, ok := v.([]any); ok {
		if equal(list, cond) {
			return true
		}
		for _, el := range list {
			if equal(el, cond) {
				return true
			}
		}
		return false
	}
	return equal(v, cond)
}

func matchOps(v any, found bool, ops query.Ops) bool {
	for op, operand := range ops {
		if !matchOp(op, v, found, operand) {
			return false
		}
	}
	return true
}

func matchOp(op string, v any, found bool, operand any) bool {
	switch op {
	case query.OpExists:
		want, _ := operand.(bool)
		return found == want

	case query.OpNe:
		return !matchValue(v, found, operand)

	case query.OpIn:
		list, ok := operand.([]any)
		if !ok {
			list = []any{operand}
		}
		for _, el := range list {
			if matchValue(v, found, el) {
				return true
			}
		}
		return false

	case query.OpRegex:
		re := asRegexp(operand)
		if re == nil || !found {
			return false
		}
		return anyElement(v, func(el any) bool {
			s, ok := el.(string)
			return ok && re.MatchString(s)
		})

	case query.OpLt, query.OpLte, query.OpGt, query.OpGte:
		if !found {
			return false
		}
		return anyElement(v, func(el any) bool {
			c, ok := compare(el, operand)
			if !ok {
				return false
			}
			switch op {
			case query.OpLt:
				return c < 0
			case query.OpLte:
				return c <= 0
			case query.OpGt:
				return c > 0
			}
			return c >= 0
		})
	}
	return false
}

func asRegexp(operand any) *regexp.Regexp {
	switch re := operand.(type) {
	case *regexp.Regexp:
		return re
	case string:
		compiled, err := regexp.Compile(re)
		if err != nil {
			return nil
		}
		return compiled
	}
	return nil
}

// anyElement applies fn to v, or to each element if v is an array
func anyElement(v any, fn func(any) bool) bool {
	list, ok := v.([]any)
	if !ok {
		return fn(v)
	}
	for _, el := range list {
		if fn(el) {
			return true
		}
	}
	return false
}

// Sort orders documents by keys. Missing values sort first in ascending
// order; values of different kinds keep their relative order.
func Sort(docs []Document, keys []query.SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, aok := Lookup(docs[i], k.Field)
			b, bok := Lookup(docs[j], k.Field)

			var c int
			switch {
			case !aok && !bok:
				continue
			case !aok:
				c = -1
			case !bok:
				c = 1
			default:
				var ok bool
				if c, ok = compare(a, b); !ok {
					continue
				}
			}
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Page returns the window of docs selected by p
func Page(docs []Document, p query.Pagination) []Document {
	skip := p.Skip()
	if skip < 0 || skip >= len(docs) {
		return []Document{}
	}
	docs = docs[skip:]
	if p.PerPage > 0 && p.PerPage < len(docs) {
		docs = docs[:p.PerPage]
	}
	return docs
}
