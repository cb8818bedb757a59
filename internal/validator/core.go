package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lmnr-ai/query-engine/internal/registry"
	"github.com/lmnr-ai/query-engine/internal/sqlast"
)

// core implements the full validate→rewrite→reserialize pipeline
// described in spec.md §4.C. v1 and v2 both embed it; see v1.go/v2.go
// for why they currently coincide.
type core struct {
	reg *registry.TableRegistry
}

const viewSuffix = "_v0"

const (
	defaultLo = "'1970-01-01 00:00:00'"
	defaultHi = "'2099-12-31 23:59:59'"
)

func (c core) validateAndSecure(sql, tenantID string) (string, error) {
	stmt, err := sqlast.Parse(sql)
	if err != nil {
		var notSelect *sqlast.NotSelectError
		if errors.As(err, &notSelect) {
			return "", &ValidationError{Msg: "Only SELECT statements are allowed"}
		}
		return "", &ValidationError{Msg: fmt.Sprintf("Query validation failed: %v", err)}
	}

	cteNames := topLevelCTENames(stmt)

	if err := c.validateTables(stmt, cteNames); err != nil {
		return "", err
	}
	if err := c.validateColumns(stmt); err != nil {
		return "", err
	}

	c.rewriteTables(stmt, cteNames, tenantID)
	stripSettings(stmt)

	return sqlast.Print(stmt), nil
}

func topLevelCTENames(stmt *sqlast.Select) map[string]bool {
	names := map[string]bool{}
	if stmt.With != nil {
		for _, c := range stmt.With.CTEs {
			names[strings.ToLower(c.Alias)] = true
		}
	}
	return names
}

// tableSlotVisitor walks every table-reference slot in stmt, the same
// way sqlast.WalkTableRefSlots does, but additionally tracks whether
// each reference names a top-level CTE — while excluding, inside a
// CTE's own body, that CTE's own name (a non-recursive CTE doesn't see
// itself, so "FROM spans" inside "spans AS (...)" refers to the real
// table even though "spans" is also a CTE alias one scope up).
func tableSlotVisitor(stmt *sqlast.Select, cteNames map[string]bool, fn func(isCTERef bool, slot sqlast.TableRefSlot)) {
	var rec func(sel *sqlast.Select, selfExclude string)
	rec = func(sel *sqlast.Select, selfExclude string) {
		if sel.With != nil {
			for _, c := range sel.With.CTEs {
				rec(c.Query, strings.ToLower(c.Alias))
			}
		}
		if sel.From == nil {
			return
		}
		from := sel.From
		visit := func(get func() sqlast.TableRef, set func(sqlast.TableRef)) {
			isCTE := false
			if named, ok := get().(*sqlast.NamedTable); ok {
				lower := strings.ToLower(named.Name)
				isCTE = cteNames[lower] && lower != selfExclude
			}
			fn(isCTE, sqlast.TableRefSlot{Owner: sel, Get: get, Set: set})
			if st, ok := get().(*sqlast.SubqueryTable); ok {
				rec(st.Query, selfExclude)
			}
		}
		visit(func() sqlast.TableRef { return from.Source }, func(t sqlast.TableRef) { from.Source = t })
		for _, j := range from.Joins {
			join := j
			visit(func() sqlast.TableRef { return join.Table }, func(t sqlast.TableRef) { join.Table = t })
		}
	}
	rec(stmt, "")
}

func (c core) validateTables(stmt *sqlast.Select, cteNames map[string]bool) error {
	var failure error
	tableSlotVisitor(stmt, cteNames, func(isCTERef bool, slot sqlast.TableRefSlot) {
		if failure != nil || isCTERef {
			return
		}
		named, ok := slot.Get().(*sqlast.NamedTable)
		if !ok {
			return
		}
		name := strings.ToLower(named.Name)
		if !c.reg.IsTableAllowed(name) {
			failure = &ValidationError{Msg: fmt.Sprintf("Table '%s' is not allowed", name)}
		}
	})
	return failure
}

func (c core) validateColumns(stmt *sqlast.Select) error {
	var failure error
	sqlast.WalkSelects(stmt, func(sel *sqlast.Select) {
		if failure != nil {
			return
		}
		for _, root := range sqlast.SelectExprRoots(sel) {
			sqlast.WalkExprs(root, func(e sqlast.Expr) {
				if failure != nil {
					return
				}
				col, ok := e.(*sqlast.Column)
				if !ok {
					return
				}
				if strings.EqualFold(col.Name, "project_id") {
					failure = &ValidationError{Msg: "Column 'project_id' does not exist"}
					return
				}
				if col.Table == "" {
					return
				}
				schema := c.reg.GetTableSchema(col.Table)
				if schema != nil && !schema.IsColumnAllowed(col.Name) {
					failure = &ValidationError{Msg: fmt.Sprintf("Column '%s' does not exist", col.Name)}
				}
			})
		}
	})
	return failure
}

func (c core) rewriteTables(stmt *sqlast.Select, cteNames map[string]bool, tenantID string) {
	tableSlotVisitor(stmt, cteNames, func(isCTERef bool, slot sqlast.TableRefSlot) {
		if isCTERef {
			return
		}
		named, ok := slot.Get().(*sqlast.NamedTable)
		if !ok {
			return
		}
		lower := strings.ToLower(named.Name)
		schema := c.reg.GetTableSchema(lower)
		if schema == nil {
			return
		}

		alias := named.Alias
		if alias == "" {
			alias = lower
		}

		args := []*sqlast.NamedArg{
			{Name: "project_id", Value: stringLiteral(tenantID)},
		}
		if lower == "traces" {
			lo, hi := extractTracesBounds(slot.Owner)
			args = append(args,
				&sqlast.NamedArg{Name: "start_time", Value: lo},
				&sqlast.NamedArg{Name: "end_time", Value: hi},
			)
		}

		slot.Set(&sqlast.FuncTable{
			Name:  lower + viewSuffix,
			Args:  args,
			Alias: alias,
		})
	})
}

func stringLiteral(s string) *sqlast.Literal {
	return &sqlast.Literal{Kind: sqlast.LiteralString, Text: "'" + strings.ReplaceAll(s, "'", "''") + "'"}
}

// extractTracesBounds scans owner's own WHERE clause (not any nested or
// enclosing scope) for comparisons bounding start_time/end_time, per
// spec.md's conjunctive-only time-bound extraction rule.
func extractTracesBounds(owner *sqlast.Select) (lo, hi sqlast.Expr) {
	lo = rawExpr(defaultLo)
	hi = rawExpr(defaultHi)
	if owner.Where == nil {
		return lo, hi
	}
	sqlast.ConjunctiveComparisons(owner.Where, func(e sqlast.Expr) {
		switch cond := e.(type) {
		case *sqlast.Between:
			col, ok := cond.Target.(*sqlast.Column)
			if !ok || !qualifiesTraces(col) {
				return
			}
			switch strings.ToLower(col.Name) {
			case "start_time":
				lo, hi = cond.Low, cond.High
			case "end_time":
				hi = cond.High
			}
		case *sqlast.Binary:
			col, ok := cond.Left.(*sqlast.Column)
			if !ok || !qualifiesTraces(col) {
				return
			}
			switch strings.ToLower(col.Name) {
			case "start_time":
				switch cond.Op {
				case ">", ">=":
					lo = cond.Right
				case "<", "<=":
					hi = cond.Right
				}
			case "end_time":
				switch cond.Op {
				case "<", "<=":
					hi = cond.Right
				}
			}
		}
	})
	return lo, hi
}

func qualifiesTraces(col *sqlast.Column) bool {
	return col.Table == "" || strings.EqualFold(col.Table, "traces")
}

func rawExpr(literalSQL string) sqlast.Expr {
	return &sqlast.Literal{Kind: sqlast.LiteralString, Text: literalSQL}
}

// stripSettings removes the SETTINGS clause from every Select in the
// tree, main query, CTEs, and subqueries alike.
func stripSettings(stmt *sqlast.Select) {
	sqlast.WalkSelects(stmt, func(sel *sqlast.Select) {
		sel.Settings = nil
	})
}
