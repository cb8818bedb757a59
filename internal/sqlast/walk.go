package sqlast

// FlattenAnd returns the top-level conjuncts of e, recursing through
// nested AND nodes; anything else (including an OR) comes back as a
// single-element slice.
func FlattenAnd(e Expr) []Expr {
	if b, ok := e.(*Binary); ok && b.Op == "AND" {
		return append(FlattenAnd(b.Left), FlattenAnd(b.Right)...)
	}
	return []Expr{e}
}

// WalkSelects calls fn once for sel and once for every Select reachable
// through CTE bodies and derived-table subqueries in its FROM/JOIN
// clauses, recursively. Order: sel itself, then its CTEs, then its
// FROM/JOIN subqueries (each walked the same way).
func WalkSelects(sel *Select, fn func(*Select)) {
	fn(sel)
	if sel.With != nil {
		for _, c := range sel.With.CTEs {
			WalkSelects(c.Query, fn)
		}
	}
	if sel.From != nil {
		if st, ok := sel.From.Source.(*SubqueryTable); ok {
			WalkSelects(st.Query, fn)
		}
		for _, j := range sel.From.Joins {
			if st, ok := j.Table.(*SubqueryTable); ok {
				WalkSelects(st.Query, fn)
			}
		}
	}
}

// TableRefSlot is a mutable reference to one TableRef position in the
// tree (a FROM source or a JOIN target), together with the Select whose
// FROM/JOIN clause directly holds it — the "narrowest enclosing scope"
// spec.md's rewrite rules key off of.
type TableRefSlot struct {
	Owner *Select
	Get   func() TableRef
	Set   func(TableRef)
}

// WalkTableRefSlots visits every table reference in the statement,
// recursing into CTE bodies and derived-table subqueries. fn may call
// slot.Set to rewrite the reference in place.
func WalkTableRefSlots(top *Select, fn func(slot TableRefSlot)) {
	var rec func(sel *Select)
	rec = func(sel *Select) {
		if sel.With != nil {
			for _, c := range sel.With.CTEs {
				rec(c.Query)
			}
		}
		if sel.From == nil {
			return
		}
		from := sel.From
		fn(TableRefSlot{
			Owner: sel,
			Get:   func() TableRef { return from.Source },
			Set:   func(t TableRef) { from.Source = t },
		})
		if st, ok := from.Source.(*SubqueryTable); ok {
			rec(st.Query)
		}
		for _, j := range from.Joins {
			join := j
			fn(TableRefSlot{
				Owner: sel,
				Get:   func() TableRef { return join.Table },
				Set:   func(t TableRef) { join.Table = t },
			})
			if st, ok := join.Table.(*SubqueryTable); ok {
				rec(st.Query)
			}
		}
	}
	rec(top)
}

// SelectExprRoots returns every expression directly owned by sel (its
// select items, WHERE, GROUP BY, ORDER BY expressions/fill bounds and
// JOIN ON clauses) without descending into nested Selects — pair with
// WalkSelects to cover a whole statement.
func SelectExprRoots(sel *Select) []Expr {
	var roots []Expr
	for _, it := range sel.Items {
		roots = append(roots, it.Expr)
	}
	if sel.Where != nil {
		roots = append(roots, sel.Where)
	}
	roots = append(roots, sel.GroupBy...)
	for _, oi := range sel.OrderBy {
		roots = append(roots, oi.Expr)
		if oi.WithFill != nil {
			if oi.WithFill.From != nil {
				roots = append(roots, oi.WithFill.From)
			}
			if oi.WithFill.To != nil {
				roots = append(roots, oi.WithFill.To)
			}
			if oi.WithFill.Step != nil {
				roots = append(roots, oi.WithFill.Step)
			}
		}
	}
	if sel.From != nil {
		for _, j := range sel.From.Joins {
			if j.On != nil {
				roots = append(roots, j.On)
			}
		}
	}
	return roots
}

// WalkExprs calls fn for e and every expression reachable from it.
func WalkExprs(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch ee := e.(type) {
	case *FuncCall:
		for _, a := range ee.Args {
			WalkExprs(a, fn)
		}
		for _, a := range ee.Args2 {
			WalkExprs(a, fn)
		}
	case *Binary:
		WalkExprs(ee.Left, fn)
		WalkExprs(ee.Right, fn)
	case *Not:
		WalkExprs(ee.Expr, fn)
	case *Between:
		WalkExprs(ee.Target, fn)
		WalkExprs(ee.Low, fn)
		WalkExprs(ee.High, fn)
	case *Neg:
		WalkExprs(ee.Expr, fn)
	}
}

// ConjunctiveComparisons calls fn for every comparison (Binary with a
// comparison operator, or Between) reachable from e by descending only
// through AND nodes. It does not descend into OR — a bound expressed
// under an OR is invisible to callers that need a guaranteed-true
// bound, per spec.md's conjunctive-only time-window extraction rule.
func ConjunctiveComparisons(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	switch ee := e.(type) {
	case *Binary:
		switch ee.Op {
		case "AND":
			ConjunctiveComparisons(ee.Left, fn)
			ConjunctiveComparisons(ee.Right, fn)
		case "OR":
			// bound not guaranteed; ignore entirely.
		default:
			fn(ee)
		}
	case *Between:
		fn(ee)
	}
}
