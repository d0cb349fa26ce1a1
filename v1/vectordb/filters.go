package vectordb

// Expr is a node of a filter predicate tree.
//
// Nodes are built with the constructors in this file and are immutable once
// built: constructors copy the slices they receive, and no method mutates a
// node. A tree is rendered into the server's text grammar by [Compile] or,
// lazily and once, by [Filter].
//
// Example:
//
//	expr := vectordb.And(
//	    vectordb.Equal("author", "Jane"),
//	    vectordb.Or(
//	        vectordb.GreaterThan("page", 10),
//	        vectordb.In("tag", "ml", "ai"),
//	    ),
//	)
//	// author = "Jane" AND ...
type Expr interface {
	// isExpr is a marker method that keeps the set of node types closed.
	isExpr()
}

// Operator is a leaf operator of the filter grammar.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="

	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT IN"
	OpInclude    Operator = "INCLUDE"
	OpExclude    Operator = "EXCLUDE"
	OpIncludeAll Operator = "INCLUDE ALL"
)

// Connective joins the children of a composite node.
type Connective string

const (
	ConnAnd    Connective = "AND"
	ConnOr     Connective = "OR"
	ConnAndNot Connective = "AND NOT"
	ConnOrNot  Connective = "OR NOT"
)

// ── Leaf Nodes ───────────────────────────────────────────────────────────────

// comparison renders as `field OP value`.
type comparison struct {
	field string
	op    Operator
	value any
}

func (*comparison) isExpr() {}

// membership renders as `field OP (v1,v2,...)`.
// Values may mix strings and numbers; each renders per its own type.
type membership struct {
	field  string
	op     Operator
	values []any
}

func (*membership) isExpr() {}

// between renders as `field BETWEEN lower AND upper`.
type between struct {
	field string
	lower any
	upper any
}

func (*between) isExpr() {}

// raw carries a condition the caller already wrote in the server grammar.
type raw struct {
	condition string
}

func (*raw) isExpr() {}

// ── Composite Nodes ──────────────────────────────────────────────────────────

// logical joins two or more children with one connective.
type logical struct {
	conn     Connective
	children []Expr
}

func (*logical) isExpr() {}

// negation renders as `NOT (child)`.
type negation struct {
	child Expr
}

func (*negation) isExpr() {}

// ── Comparison Constructors ──────────────────────────────────────────────────

// Equal matches documents whose field equals value (field = value).
func Equal(field string, value any) Expr {
	return &comparison{field: field, op: OpEqual, value: value}
}

// NotEqual matches documents whose field differs from value (field != value).
func NotEqual(field string, value any) Expr {
	return &comparison{field: field, op: OpNotEqual, value: value}
}

// GreaterThan matches field > value.
func GreaterThan(field string, value any) Expr {
	return &comparison{field: field, op: OpGreater, value: value}
}

// GreaterOrEqual matches field >= value.
func GreaterOrEqual(field string, value any) Expr {
	return &comparison{field: field, op: OpGreaterEqual, value: value}
}

// LessThan matches field < value.
func LessThan(field string, value any) Expr {
	return &comparison{field: field, op: OpLess, value: value}
}

// LessOrEqual matches field <= value.
func LessOrEqual(field string, value any) Expr {
	return &comparison{field: field, op: OpLessEqual, value: value}
}

// Range matches lower <= field <= upper (field BETWEEN lower AND upper).
func Range(field string, lower, upper any) Expr {
	return &between{field: field, lower: lower, upper: upper}
}

// ── Membership Constructors ──────────────────────────────────────────────────

// In matches documents whose field is one of values.
// SQL equivalent: WHERE field IN (v1, v2, ...)
func In(field string, values ...any) Expr {
	return newMembership(field, OpIn, values)
}

// NotIn matches documents whose field is none of values.
func NotIn(field string, values ...any) Expr {
	return newMembership(field, OpNotIn, values)
}

// Include matches array fields containing at least one of values.
func Include(field string, values ...any) Expr {
	return newMembership(field, OpInclude, values)
}

// Exclude matches array fields containing none of values.
func Exclude(field string, values ...any) Expr {
	return newMembership(field, OpExclude, values)
}

// IncludeAll matches array fields containing every one of values.
func IncludeAll(field string, values ...any) Expr {
	return newMembership(field, OpIncludeAll, values)
}

func newMembership(field string, op Operator, values []any) Expr {
	return &membership{field: field, op: op, values: append([]any(nil), values...)}
}

// Raw wraps a condition already written in the server grammar.
// It is parenthesized like any other operand when combined.
func Raw(condition string) Expr {
	return &raw{condition: condition}
}

// ── Combinators ──────────────────────────────────────────────────────────────

// And matches documents satisfying every child.
func And(children ...Expr) Expr {
	return newLogical(ConnAnd, children)
}

// Or matches documents satisfying at least one child.
func Or(children ...Expr) Expr {
	return newLogical(ConnOr, children)
}

// AndNot matches documents satisfying left and not right.
func AndNot(left, right Expr) Expr {
	return newLogical(ConnAndNot, []Expr{left, right})
}

// OrNot matches documents satisfying left or not right.
func OrNot(left, right Expr) Expr {
	return newLogical(ConnOrNot, []Expr{left, right})
}

// Not negates child.
func Not(child Expr) Expr {
	return &negation{child: child}
}

func newLogical(conn Connective, children []Expr) Expr {
	return &logical{conn: conn, children: append([]Expr(nil), children...)}
}
