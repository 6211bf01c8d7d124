// Package sqlbuild folds filter and patch descriptions into gorm chains.
// Values are always bound; only the column names, which come from code, reach
// the statement text.
package sqlbuild

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Op is a comparison operator supported by Where.
type Op string

const (
	Eq   Op = "="
	Gte  Op = ">="
	Lte  Op = "<="
	Like Op = "LIKE"
	In   Op = "IN"
)

// Predicate is one bound filter: Column Op Value. For In, Value is a slice.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Assignment is one bound SET entry.
type Assignment struct {
	Column string
	Value  any
}

var errUnkeyedUpdate = errors.New("update requires a key predicate")

// Contains wraps a search term for a substring LIKE match.
func Contains(term string) string {
	return "%" + term + "%"
}

// Where chains preds onto qb, joined with AND.
func Where(qb *gorm.DB, preds ...Predicate) (*gorm.DB, error) {
	for _, p := range preds {
		switch p.Op {
		case Eq, Gte, Lte, Like:
			qb = qb.Where(p.Column+" "+string(p.Op)+" ?", p.Value)
		case In:
			// gorm expands the slice; an empty one renders IN (NULL)
			qb = qb.Where(p.Column+" IN ?", p.Value)
		default:
			return nil, fmt.Errorf("unsupported operator %q on %s", p.Op, p.Column)
		}
	}
	return qb, nil
}

// Values is the column map gorm's Updates expects. Zero values are kept.
func Values(assigns []Assignment) map[string]any {
	out := make(map[string]any, len(assigns))
	for _, a := range assigns {
		out[a.Column] = a.Value
	}
	return out
}

// Update applies assigns to the rows of table matched by keys and reports how
// many matched. Nothing to assign is a no-op.
func Update(qb *gorm.DB, table string, assigns []Assignment, keys ...Predicate) (int64, error) {
	if len(assigns) == 0 {
		return 0, nil
	}
	if len(keys) == 0 {
		return 0, fmt.Errorf("%s: %w", table, errUnkeyedUpdate)
	}
	qb, err := Where(qb.Table(table), keys...)
	if err != nil {
		return 0, err
	}
	res := qb.Updates(Values(assigns))
	return res.RowsAffected, res.Error
}
