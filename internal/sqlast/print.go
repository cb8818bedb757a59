package sqlast

import (
	"fmt"
	"strings"
)

// Print renders sel as pretty-printed SQL: one clause per line, select
// items and conjunctive WHERE terms indented four spaces, matching the
// teacher corpus's DDL pretty-printer convention (housekeeper) applied
// to SELECT statements. Print never emits a SETTINGS clause — the
// validator always strips it before printing, and nothing else in this
// package constructs one on rewrite.
func Print(sel *Select) string {
	var b strings.Builder
	writeSelect(&b, sel, 0)
	return strings.TrimRight(b.String(), "\n")
}

func indent(n int) string { return strings.Repeat("    ", n) }

func writeSelect(b *strings.Builder, sel *Select, depth int) {
	pad := indent(depth)
	if sel.With != nil && len(sel.With.CTEs) > 0 {
		b.WriteString(pad + "WITH ")
		for i, c := range sel.With.CTEs {
			if i > 0 {
				b.WriteString(",\n" + pad + "     ")
			}
			b.WriteString(c.Alias + " AS (\n")
			var nb strings.Builder
			writeSelect(&nb, c.Query, depth+1)
			b.WriteString(strings.TrimRight(nb.String(), "\n"))
			b.WriteString("\n" + pad + ")")
		}
		b.WriteString("\n")
	}

	b.WriteString(pad + "SELECT\n")
	for i, item := range sel.Items {
		b.WriteString(pad + "    " + printExpr(item.Expr))
		if item.Alias != "" {
			b.WriteString(" AS " + item.Alias)
		}
		if i < len(sel.Items)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	if sel.From != nil {
		b.WriteString(pad + "FROM " + printTableExpr(sel.From.Source, depth))
		for _, j := range sel.From.Joins {
			b.WriteString("\n" + pad)
			if j.Kind != "" {
				b.WriteString(j.Kind + " ")
			}
			b.WriteString("JOIN " + printTableExpr(j.Table, depth))
			if j.On != nil {
				b.WriteString(" ON " + printExpr(j.On))
			}
		}
		b.WriteString("\n")
	}

	if sel.Where != nil {
		conds := FlattenAnd(sel.Where)
		b.WriteString(pad + "WHERE\n")
		for i, cond := range conds {
			if i == 0 {
				b.WriteString(pad + "    " + printExpr(cond))
			} else {
				b.WriteString("\n" + pad + "    AND " + printExpr(cond))
			}
		}
		b.WriteString("\n")
	}

	if len(sel.GroupBy) > 0 {
		parts := make([]string, len(sel.GroupBy))
		for i, e := range sel.GroupBy {
			parts[i] = printExpr(e)
		}
		b.WriteString(pad + "GROUP BY " + strings.Join(parts, ", ") + "\n")
	}

	if len(sel.OrderBy) > 0 {
		parts := make([]string, len(sel.OrderBy))
		for i, it := range sel.OrderBy {
			s := printExpr(it.Expr)
			if it.Desc {
				s += " DESC"
			} else {
				s += " ASC"
			}
			if it.WithFill != nil {
				s += " WITH FILL"
				if it.WithFill.From != nil {
					s += " FROM " + printExpr(it.WithFill.From)
				}
				if it.WithFill.To != nil {
					s += " TO " + printExpr(it.WithFill.To)
				}
				if it.WithFill.Step != nil {
					s += " STEP " + printExpr(it.WithFill.Step)
				}
			}
			parts[i] = s
		}
		b.WriteString(pad + "ORDER BY " + strings.Join(parts, ", ") + "\n")
	}

	if sel.Limit != nil {
		b.WriteString(pad + "LIMIT " + printExpr(sel.Limit) + "\n")
	}
}

func printTableExpr(t TableRef, depth int) string {
	switch tt := t.(type) {
	case *NamedTable:
		s := tt.Name
		if tt.Schema != "" {
			s = tt.Schema + "." + tt.Name
		}
		if tt.Alias != "" {
			s += " AS " + tt.Alias
		}
		return s
	case *FuncTable:
		args := make([]string, len(tt.Args))
		for i, a := range tt.Args {
			args[i] = a.Name + " = " + printExpr(a.Value)
		}
		s := tt.Name + "(" + strings.Join(args, ", ") + ")"
		if tt.Alias != "" {
			s += " AS " + tt.Alias
		}
		return s
	case *SubqueryTable:
		var nb strings.Builder
		writeSelect(&nb, tt.Query, depth+1)
		s := "(\n" + strings.TrimRight(nb.String(), "\n") + "\n" + indent(depth) + ")"
		if tt.Alias != "" {
			s += " AS " + tt.Alias
		}
		return s
	default:
		return ""
	}
}

func printExpr(e Expr) string {
	switch ee := e.(type) {
	case *Column:
		if ee.Table != "" {
			return ee.Table + "." + ee.Name
		}
		return ee.Name
	case *Star:
		if ee.Table != "" {
			return ee.Table + ".*"
		}
		return "*"
	case *Literal:
		return ee.Text
	case *Placeholder:
		return ee.String()
	case *FuncCall:
		args := make([]string, len(ee.Args))
		for i, a := range ee.Args {
			args[i] = printExpr(a)
		}
		s := ee.Name + "(" + strings.Join(args, ", ") + ")"
		if ee.Args2 != nil {
			args2 := make([]string, len(ee.Args2))
			for i, a := range ee.Args2 {
				args2[i] = printExpr(a)
			}
			s += "(" + strings.Join(args2, ", ") + ")"
		}
		return s
	case *Binary:
		return printExpr(ee.Left) + " " + ee.Op + " " + printExpr(ee.Right)
	case *Not:
		return "NOT " + printExpr(ee.Expr)
	case *Between:
		return fmt.Sprintf("%s BETWEEN %s AND %s", printExpr(ee.Target), printExpr(ee.Low), printExpr(ee.High))
	case *Neg:
		return "-" + printExpr(ee.Expr)
	default:
		return ""
	}
}
