package blastx

// Expression represents a composable filter expression over hit catalog
// documents. Every Expression is also a QueryOption.
type Expression interface {
	QueryOption
	// expr is a marker method to distinguish expressions from other options.
	expr()
}

// baseExpr provides the expr marker method for all expression types.
type baseExpr struct{}

func (baseExpr) expr() {}

// addFilter appends e to the query filters.
func addFilter(cfg *QueryConfig, e Expression) {
	cfg.Filters = append(cfg.Filters, e)
}

// AndExpr represents an AND combination of expressions.
type AndExpr struct {
	baseExpr
	// Exprs contains the expressions to combine with AND logic.
	Exprs []Expression
}

// Apply implements the QueryOption interface for AndExpr.
func (a AndExpr) Apply(cfg *QueryConfig) { addFilter(cfg, a) }

// And creates an AND expression combining multiple expressions.
func And(exprs ...Expression) Expression {
	return AndExpr{Exprs: exprs}
}

// OrExpr represents an OR combination of expressions.
type OrExpr struct {
	baseExpr
	// Exprs contains the expressions to combine with OR logic.
	Exprs []Expression
}

// Apply implements the QueryOption interface for OrExpr.
func (o OrExpr) Apply(cfg *QueryConfig) { addFilter(cfg, o) }

// Or creates an OR expression combining multiple expressions.
func Or(exprs ...Expression) Expression {
	return OrExpr{Exprs: exprs}
}

// NotExpr represents a NOT negation of an expression.
type NotExpr struct {
	baseExpr
	// Inner is the expression to negate.
	Inner Expression
}

// Apply implements the QueryOption interface for NotExpr.
func (n NotExpr) Apply(cfg *QueryConfig) { addFilter(cfg, n) }

// Not creates a NOT expression negating the given expression.
func Not(expr Expression) Expression {
	return NotExpr{Inner: expr}
}

// CompareExpr compares a document field against a value.
type CompareExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Op is one of OpEq, OpNe, OpGt, OpGte, OpLt or OpLte.
	Op Operator
	// Value is the value to compare against.
	Value interface{}
}

// Apply implements the QueryOption interface for CompareExpr.
func (c CompareExpr) Apply(cfg *QueryConfig) { addFilter(cfg, c) }

// Eq creates an equality comparison expression.
func Eq(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpEq, Value: value}
}

// Ne creates a not-equal comparison expression.
func Ne(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpNe, Value: value}
}

// Gt creates a greater-than comparison expression.
func Gt(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpGt, Value: value}
}

// Gte creates a greater-than-or-equal comparison expression.
func Gte(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpGte, Value: value}
}

// Lt creates a less-than comparison expression.
func Lt(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpLt, Value: value}
}

// Lte creates a less-than-or-equal comparison expression.
func Lte(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpLte, Value: value}
}

// RangeExpr represents an inclusive range comparison expression.
type RangeExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Min is the lower bound. Can be nil for no lower bound.
	Min interface{}
	// Max is the upper bound. Can be nil for no upper bound.
	Max interface{}
}

// Apply implements the QueryOption interface for RangeExpr.
func (r RangeExpr) Apply(cfg *QueryConfig) { addFilter(cfg, r) }

// Range creates a range comparison expression.
func Range(field string, min, max interface{}) Expression {
	return RangeExpr{Field: field, Min: min, Max: max}
}

// ExistsExpr represents a field existence check expression.
type ExistsExpr struct {
	baseExpr
	// Field is the name of the field to check for existence.
	Field string
}

// Apply implements the QueryOption interface for ExistsExpr.
func (e ExistsExpr) Apply(cfg *QueryConfig) { addFilter(cfg, e) }

// Exists creates a field existence check expression.
func Exists(field string) Expression {
	return ExistsExpr{Field: field}
}

// ParseOperator maps a textual comparison operator ("=", "!=", ">", ">=",
// "<", "<=") to an Operator.
func ParseOperator(s string) (Operator, bool) {
	switch s {
	case "=", "==":
		return OpEq, true
	case "!=":
		return OpNe, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGte, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLte, true
	default:
		return "", false
	}
}

// Compare builds the comparison expression for op.
func Compare(field string, op Operator, value interface{}) Expression {
	return CompareExpr{Field: field, Op: op, Value: value}
}
