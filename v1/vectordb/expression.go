package vectordb

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Compile renders a predicate tree into the server's filter grammar.
//
// Every child of a composite node is wrapped in parentheses, at any depth, so
// the text always parses back into the same tree shape regardless of how the
// server ranks AND against OR. The root is not wrapped.
//
//	Compile(And(Equal("a", 1), Or(Equal("b", 2), Equal("c", 3))))
//	// (a = 1) AND ((b = 2) OR (c = 3))
//
// String literals are double-quoted with backslash and quote escaped. Numbers
// are rendered in plain decimal. Compile is a pure function of the tree; it
// returns *InvalidFilterError for empty value lists, unsupported literal
// types, empty field names, and empty composites.
func Compile(expr Expr) (string, error) {
	var b strings.Builder
	if err := writeExpr(&b, expr); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeExpr(b *strings.Builder, expr Expr) error {
	switch n := expr.(type) {
	case nil:
		return filterError("", "nil expression")

	case *comparison:
		if n == nil {
			return filterError("", "nil expression")
		}
		if err := checkField(n.field); err != nil {
			return err
		}
		lit, err := renderLiteral(n.field, n.value)
		if err != nil {
			return err
		}
		b.WriteString(n.field)
		b.WriteByte(' ')
		b.WriteString(string(n.op))
		b.WriteByte(' ')
		b.WriteString(lit)
		return nil

	case *membership:
		if n == nil {
			return filterError("", "nil expression")
		}
		if err := checkField(n.field); err != nil {
			return err
		}
		if len(n.values) == 0 {
			return filterError(n.field, "%s requires at least one value", n.op)
		}
		b.WriteString(n.field)
		b.WriteByte(' ')
		b.WriteString(string(n.op))
		b.WriteString(" (")
		for i, v := range n.values {
			lit, err := renderLiteral(n.field, v)
			if err != nil {
				return err
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(lit)
		}
		b.WriteByte(')')
		return nil

	case *between:
		if n == nil {
			return filterError("", "nil expression")
		}
		if err := checkField(n.field); err != nil {
			return err
		}
		lower, err := renderLiteral(n.field, n.lower)
		if err != nil {
			return err
		}
		upper, err := renderLiteral(n.field, n.upper)
		if err != nil {
			return err
		}
		b.WriteString(n.field)
		b.WriteString(" BETWEEN ")
		b.WriteString(lower)
		b.WriteString(" AND ")
		b.WriteString(upper)
		return nil

	case *raw:
		if n == nil {
			return filterError("", "nil expression")
		}
		if strings.TrimSpace(n.condition) == "" {
			return filterError("", "raw condition is empty")
		}
		b.WriteString(n.condition)
		return nil

	case *logical:
		if n == nil {
			return filterError("", "nil expression")
		}
		if len(n.children) == 0 {
			return filterError("", "%s requires at least one operand", n.conn)
		}
		for i, child := range n.children {
			if i > 0 {
				b.WriteByte(' ')
				b.WriteString(string(n.conn))
				b.WriteByte(' ')
			}
			b.WriteByte('(')
			if err := writeExpr(b, child); err != nil {
				return err
			}
			b.WriteByte(')')
		}
		return nil

	case *negation:
		if n == nil {
			return filterError("", "nil expression")
		}
		b.WriteString("NOT (")
		if err := writeExpr(b, n.child); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil

	default:
		return filterError("", "unsupported expression node %T", expr)
	}
}

func checkField(field string) error {
	if strings.TrimSpace(field) == "" {
		return filterError(field, "field name is empty")
	}
	return nil
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// renderLiteral renders one typed literal. Strings are quoted; integers and
// floats print without exponent or locale separators.
func renderLiteral(field string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return `"` + literalEscaper.Replace(x) + `"`, nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(field, float64(x), 32)
	case float64:
		return formatFloat(field, x, 64)
	case json.Number:
		if !jsonNumberPattern.MatchString(x.String()) {
			return "", filterError(field, "malformed number literal %q", x.String())
		}
		f, err := x.Float64()
		if err != nil {
			return "", filterError(field, "malformed number literal %q", x.String())
		}
		if strings.ContainsAny(x.String(), "eE") {
			return formatFloat(field, f, 64)
		}
		return x.String(), nil
	default:
		return "", filterError(field, "unsupported literal type %T", v)
	}
}

// jsonNumberPattern is the JSON number grammar; it excludes NaN, Inf and
// hex forms that strconv would otherwise accept.
var jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

func formatFloat(field string, f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", filterError(field, "non-finite number %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}

// ── Filter ───────────────────────────────────────────────────────────────────

// Filter is an immutable predicate tree rendered lazily.
// The first call to Render compiles the tree; later calls return the cached
// text or error. A Filter is safe for concurrent use.
type Filter struct {
	root Expr

	once sync.Once
	text string
	err  error
}

// NewFilter wraps root in a Filter.
func NewFilter(root Expr) *Filter {
	return &Filter{root: root}
}

// Expr returns the root of the predicate tree.
func (f *Filter) Expr() Expr {
	return f.root
}

// Render returns the compiled filter text.
func (f *Filter) Render() (string, error) {
	f.once.Do(func() {
		f.text, f.err = Compile(f.root)
	})
	return f.text, f.err
}

// String returns the compiled text, or an empty string if the tree is invalid.
func (f *Filter) String() string {
	s, _ := f.Render()
	return s
}

// And returns a new Filter matching f and every one of others.
func (f *Filter) And(others ...Expr) *Filter {
	return NewFilter(And(append([]Expr{f.root}, others...)...))
}

// Or returns a new Filter matching f or any one of others.
func (f *Filter) Or(others ...Expr) *Filter {
	return NewFilter(Or(append([]Expr{f.root}, others...)...))
}

// AndNot returns a new Filter matching f and not other.
func (f *Filter) AndNot(other Expr) *Filter {
	return NewFilter(AndNot(f.root, other))
}

// OrNot returns a new Filter matching f or not other.
func (f *Filter) OrNot(other Expr) *Filter {
	return NewFilter(OrNot(f.root, other))
}

// renderOptional compiles f, treating a nil filter as "match all".
func renderOptional(f *Filter) (string, error) {
	if f == nil {
		return "", nil
	}
	return f.Render()
}
