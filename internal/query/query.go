// Package query translates the raw query string of a collection endpoint into
// a structured descriptor: filter conditions, sort order, column projection
// and pagination. The descriptor then emits SQL fragments with placeholder
// arguments. The package performs no I/O; repositories combine the fragments
// into full statements.
//
// The translation contract, shared by every GET collection endpoint:
//
//	?price[gte]=100&price[lte]=500   range filters (gte, gt, lte, lt only)
//	?difficulty=easy                 equality filter
//	?duration=5&duration=9           repeated key -> IN list
//	?sort=-price,name                '-' prefix sorts descending
//	?fields=name,price               projection include-list
//	?page=2&limit=5                  pagination, defaults 1 and 10
//
// Anything that is not a whitelisted bracket operator stays part of the field
// name, and field names are validated against a strict identifier pattern, so
// untrusted input cannot smuggle operators or SQL into the statement.
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/roamio/tour-booking/internal/apperr"
)

// Reserved keys are stripped before the remainder is treated as filter
// criteria.
const (
	keyPage   = "page"
	keySort   = "sort"
	keyLimit  = "limit"
	keyFields = "fields"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	// Tiebreaker appended to every sort so pagination stays deterministic
	// when the primary sort key has duplicates.
	tiebreakColumn = "id"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpIn  Op = "IN"
	OpGte Op = ">="
	OpGt  Op = ">"
	OpLte Op = "<="
	OpLt  Op = "<"
)

// bracketOps is the closed whitelist of bracket suffixes. Any other suffix is
// treated as part of a literal field name, never as an operator.
var bracketOps = map[string]Op{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition is a single filter clause on one field.
type Condition struct {
	Field  string
	Op     Op
	Values []string // one value, except for IN
}

// SortKey is one element of the sort order.
type SortKey struct {
	Field string
	Desc  bool
}

// Descriptor is the structured result of translating a query string. It is
// rebuilt per request and never persisted.
type Descriptor struct {
	Conds   []Condition
	Sort    []SortKey
	Include []string // explicit projection include-list (exclusive with Exclude)
	Exclude []string // explicit projection exclude-list
	Page    int
	Limit   int
}

// Parse translates raw query parameters into a Descriptor. Identical input
// always yields an identical descriptor: filter conditions are ordered by
// their raw key.
func Parse(values url.Values) (Descriptor, error) {
	d := Descriptor{
		Page:  intOrDefault(values.Get(keyPage), defaultPage),
		Limit: intOrDefault(values.Get(keyLimit), defaultLimit),
	}

	var err error
	if d.Sort, err = parseSort(values.Get(keySort)); err != nil {
		return Descriptor{}, err
	}
	if d.Include, d.Exclude, err = parseFields(values.Get(keyFields)); err != nil {
		return Descriptor{}, err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		switch k {
		case keyPage, keySort, keyLimit, keyFields:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		cond, err := parseCondition(k, values[k])
		if err != nil {
			return Descriptor{}, err
		}
		d.Conds = append(d.Conds, cond)
	}
	return d, nil
}

// parseCondition turns one raw key and its values into a filter clause.
// A `field[op]` key with a whitelisted op becomes a range comparison; any
// other bracket suffix stays glued to the key and fails the identifier check.
func parseCondition(key string, vals []string) (Condition, error) {
	if open := strings.IndexByte(key, '['); open > 0 && strings.HasSuffix(key, "]") {
		if op, ok := bracketOps[key[open+1:len(key)-1]]; ok {
			field := key[:open]
			if !identPattern.MatchString(field) {
				return Condition{}, apperr.New(apperr.Validation,
					fmt.Sprintf("Invalid filter field %q.", field))
			}
			// With a repeated range key only the first value is meaningful.
			return Condition{Field: field, Op: op, Values: vals[:1]}, nil
		}
	}
	if !identPattern.MatchString(key) {
		return Condition{}, apperr.New(apperr.Validation,
			fmt.Sprintf("Invalid filter field %q.", key))
	}
	if len(vals) > 1 {
		return Condition{Field: key, Op: OpIn, Values: vals}, nil
	}
	return Condition{Field: key, Op: OpEq, Values: vals}, nil
}

// parseSort parses the comma-separated sort list. An empty list falls back to
// newest-first; the id tiebreaker is appended in both cases.
func parseSort(raw string) ([]SortKey, error) {
	if strings.TrimSpace(raw) == "" {
		return []SortKey{{Field: "created_at", Desc: true}, {Field: tiebreakColumn}}, nil
	}
	var keys []SortKey
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sk := SortKey{Field: part}
		if strings.HasPrefix(part, "-") {
			sk = SortKey{Field: part[1:], Desc: true}
		}
		if !identPattern.MatchString(sk.Field) {
			return nil, apperr.New(apperr.Validation,
				fmt.Sprintf("Invalid sort field %q.", sk.Field))
		}
		keys = append(keys, sk)
	}
	if len(keys) == 0 {
		return []SortKey{{Field: "created_at", Desc: true}, {Field: tiebreakColumn}}, nil
	}
	return append(keys, SortKey{Field: tiebreakColumn}), nil
}

// parseFields parses the projection list. Entries either all include or all
// exclude (leading '-'); mixing the two modes is rejected rather than being
// silently merged.
func parseFields(raw string) (include, exclude []string, err error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil, nil
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := part
		excluded := strings.HasPrefix(part, "-")
		if excluded {
			name = part[1:]
		}
		if !identPattern.MatchString(name) {
			return nil, nil, apperr.New(apperr.Validation,
				fmt.Sprintf("Invalid projection field %q.", name))
		}
		if excluded {
			exclude = append(exclude, name)
		} else {
			include = append(include, name)
		}
	}
	if len(include) > 0 && len(exclude) > 0 {
		return nil, nil, apperr.New(apperr.Validation,
			"Projection cannot mix included and excluded fields.")
	}
	return include, exclude, nil
}

func intOrDefault(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Offset is the number of rows skipped before the requested page.
func (d Descriptor) Offset() int { return (d.Page - 1) * d.Limit }

// Where renders the filter conditions as a SQL condition string with
// placeholder args. Fields must appear in the allowed column list; a filter
// on any other name is a validation error, which keeps attacker-chosen keys
// away from the statement text. An empty filter renders as "1=1" so callers
// can always append it after WHERE.
func (d Descriptor) Where(allowed []string) (string, []any, error) {
	cols := columnSet(allowed)
	if len(d.Conds) == 0 {
		return "1=1", nil, nil
	}
	parts := make([]string, 0, len(d.Conds))
	args := make([]any, 0, len(d.Conds))
	for _, c := range d.Conds {
		if !cols[c.Field] {
			return "", nil, apperr.New(apperr.Validation,
				fmt.Sprintf("Unknown filter field %q.", c.Field))
		}
		switch c.Op {
		case OpIn:
			marks := strings.TrimSuffix(strings.Repeat("?,", len(c.Values)), ",")
			parts = append(parts, fmt.Sprintf("%s IN (%s)", c.Field, marks))
			for _, v := range c.Values {
				args = append(args, v)
			}
		default:
			parts = append(parts, fmt.Sprintf("%s %s ?", c.Field, c.Op))
			args = append(args, c.Values[0])
		}
	}
	return strings.Join(parts, " AND "), args, nil
}

// Order renders the ORDER BY column list.
func (d Descriptor) Order(allowed []string) (string, error) {
	cols := columnSet(allowed)
	parts := make([]string, 0, len(d.Sort))
	for _, sk := range d.Sort {
		if !cols[sk.Field] {
			return "", apperr.New(apperr.Validation,
				fmt.Sprintf("Unknown sort field %q.", sk.Field))
		}
		dir := "ASC"
		if sk.Desc {
			dir = "DESC"
		}
		parts = append(parts, sk.Field+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

// Columns resolves the projection against the table's column list. With no
// explicit field list the hidden set (internal or sensitive columns) is
// excluded by default. An explicit include-list always carries the id column
// so results stay addressable.
func (d Descriptor) Columns(allowed, hidden []string) ([]string, error) {
	cols := columnSet(allowed)

	if len(d.Include) > 0 {
		out := []string{tiebreakColumn}
		for _, f := range d.Include {
			if !cols[f] {
				return nil, apperr.New(apperr.Validation,
					fmt.Sprintf("Unknown projection field %q.", f))
			}
			if f != tiebreakColumn {
				out = append(out, f)
			}
		}
		return out, nil
	}

	drop := columnSet(hidden)
	if len(d.Exclude) > 0 {
		drop = map[string]bool{}
		for _, f := range d.Exclude {
			if !cols[f] {
				return nil, apperr.New(apperr.Validation,
					fmt.Sprintf("Unknown projection field %q.", f))
			}
			drop[f] = true
		}
	}
	out := make([]string, 0, len(allowed))
	for _, c := range allowed {
		if !drop[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func columnSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}
