package inmemory

import (
	"fmt"

	"github.com/letmevibethatforyou/blastx"
)

func matchesAll(doc blastx.HitDocument, filters []blastx.Expression) bool {
	for _, f := range filters {
		if !evaluate(doc, f) {
			return false
		}
	}
	return true
}

// evaluate reports whether doc satisfies expr. Unknown expression types
// match everything.
func evaluate(doc blastx.HitDocument, expr blastx.Expression) bool {
	switch e := expr.(type) {
	case blastx.AndExpr:
		for _, inner := range e.Exprs {
			if !evaluate(doc, inner) {
				return false
			}
		}
		return true
	case blastx.OrExpr:
		for _, inner := range e.Exprs {
			if evaluate(doc, inner) {
				return true
			}
		}
		return false
	case blastx.NotExpr:
		return !evaluate(doc, e.Inner)
	case blastx.CompareExpr:
		return evaluateCompare(doc, e)
	case blastx.RangeExpr:
		v, ok := doc.Fields[e.Field]
		if !ok {
			return false
		}
		if e.Min != nil && compareValues(v, e.Min) < 0 {
			return false
		}
		if e.Max != nil && compareValues(v, e.Max) > 0 {
			return false
		}
		return true
	case blastx.ExistsExpr:
		_, ok := doc.Fields[e.Field]
		return ok
	default:
		return true
	}
}

func evaluateCompare(doc blastx.HitDocument, e blastx.CompareExpr) bool {
	v, exists := doc.Fields[e.Field]
	switch e.Op {
	case blastx.OpEq:
		if !exists {
			return e.Value == nil
		}
		return equal(v, e.Value)
	case blastx.OpNe:
		if !exists {
			return e.Value != nil
		}
		return !equal(v, e.Value)
	}

	if !exists {
		return false
	}
	cmp := compareValues(v, e.Value)
	switch e.Op {
	case blastx.OpGt:
		return cmp > 0
	case blastx.OpGte:
		return cmp >= 0
	case blastx.OpLt:
		return cmp < 0
	case blastx.OpLte:
		return cmp <= 0
	default:
		return false
	}
}

func equal(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}
	if f1, ok := toFloat64(v1); ok {
		if f2, ok := toFloat64(v2); ok {
			return f1 == f2
		}
	}
	return fmt.Sprint(v1) == fmt.Sprint(v2)
}
