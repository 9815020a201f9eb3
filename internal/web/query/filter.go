package query

import (
	"regexp"
	"sort"
	"time"
)

// Filter is a structured query filter compiled from whitelisted query-string
// parameters. Each value is either a literal (equality constraint) or an Ops
// object holding one or more operator constraints on the same field path.
//
// Example:
//
//	Filter{"status": "published", "score": Ops{"$gte": "10", "$lte": "20"}}
type Filter map[string]any

// Ops maps operator names ($lt, $in, $regex, ...) to their operands
type Ops map[string]any

// Operator names understood by document stores
const (
	OpLt     = "$lt"
	OpLte    = "$lte"
	OpGt     = "$gt"
	OpGte    = "$gte"
	OpIn     = "$in"
	OpNe     = "$ne"
	OpRegex  = "$regex"
	OpExists = "$exists"
)

// ExistsValue is the literal query value that turns a constraint into an
// existence check
const ExistsValue = "$exists"

// prefix is a recognized operator prefix on a query key
type prefix struct {
	token           string
	op              string
	caseInsensitive bool
}

// prefixes are checked in this order; the first match wins
var prefixes = []prefix{
	{token: "$lt_", op: OpLt},
	{token: "$lte_", op: OpLte},
	{token: "$gt_", op: OpGt},
	{token: "$gte_", op: OpGte},
	{token: "$in_", op: OpIn},
	{token: "$ne_", op: OpNe},
	{token: "$regex_", op: OpRegex},
	{token: "$regexi_", op: OpRegex, caseInsensitive: true},
}

// Compiler turns query-string parameters into a Filter. Only keys permitted by
// Patterns take part in the filter; everything else is silently dropped.
type Compiler struct {
	// Patterns are the permitted query-key patterns
	Patterns []string
	// Match decides whether a key is permitted; GlobMatcher when nil
	Match Matcher
}

// Compile builds a filter from q using the glob matcher
func Compile(patterns []string, q map[string]any) Filter {
	return (&Compiler{Patterns: patterns}).Compile(q)
}

// Compile builds a Filter from the query mapping q.
//
// Values must be non-empty strings or non-zero times; a []string is accepted
// only for $in_ keys. A key is permitted when the key itself or the field path
// left after stripping its operator prefix matches a pattern. The value
// "$exists" always compiles to an existence check on the field, whatever the
// prefix; under $ne_ it checks for absence. Keys are visited in sorted
// order so that collisions on one field resolve deterministically: operators
// accumulate in a single Ops, and a literal on the field wins over operators.
//
// Compile never fails. Anything it cannot use is left out of the filter.
func (c *Compiler) Compile(q map[string]any) Filter {
	filter := Filter{}
	if len(c.Patterns) == 0 || len(q) == 0 {
		return filter
	}

	match := c.Match
	if match == nil {
		match = GlobMatcher
	}

	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p, field := splitPrefix(key)
		raw, ok := usable(q[key], p)
		if !ok {
			continue
		}

		if !match(c.Patterns, key) && (p == nil || !match(c.Patterns, field)) {
			continue
		}

		if s, ok := raw.(string); ok && s == ExistsValue {
			if p == nil {
				filter[key] = Ops{OpExists: true}
			} else {
				filter.addOp(field, OpExists, p.op != OpNe)
			}
			continue
		}

		operand, ok := operandFor(raw, p)
		if !ok {
			continue
		}

		if p == nil {
			filter[key] = operand
			continue
		}
		filter.addOp(field, p.op, operand)
	}

	return filter
}

// addOp records an operator constraint on field. A literal already on the
// field is left untouched.
func (f Filter) addOp(field, op string, operand any) {
	switch existing := f[field].(type) {
	case nil:
		f[field] = Ops{op: operand}
	case Ops:
		existing[op] = operand
	}
}

// splitPrefix returns the operator prefix of key (nil if none) and the field
// path that remains once it is stripped
func splitPrefix(key string) (*prefix, string) {
	for i := range prefixes {
		p := &prefixes[i]
		if len(key) > len(p.token) && key[:len(p.token)] == p.token {
			return p, key[len(p.token):]
		}
	}
	return nil, key
}

// usable filters out values that never take part in a filter
func usable(v any, p *prefix) (any, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case time.Time:
		return val, !val.IsZero()
	case []string:
		if p == nil || p.op != OpIn {
			return nil, false
		}
		values := make([]any, 0, len(val))
		for _, s := range val {
			if s != "" {
				values = append(values, s)
			}
		}
		return values, len(values) > 0
	default:
		return nil, false
	}
}

// operandFor converts a raw query value into the operand stored in the filter
func operandFor(raw any, p *prefix) (any, bool) {
	if p == nil {
		return raw, true
	}

	switch p.op {
	case OpIn:
		if seq, ok := raw.([]any); ok {
			return seq, true
		}
		return []any{raw}, true
	case OpRegex:
		s, ok := raw.(string)
		if !ok {
			return nil, false
		}
		if p.caseInsensitive {
			s = "(?i)" + s
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, false
		}
		return re, true
	default:
		return raw, true
	}
}

// Fields returns the field paths constrained by the filter in sorted order
func (f Filter) Fields() []string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Clone returns a copy of the filter whose Ops can be modified independently
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		if ops, ok := v.(Ops); ok {
			cp := make(Ops, len(ops))
			for op, operand := range ops {
				cp[op] = operand
			}
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}
