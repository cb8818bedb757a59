package sqlast

import "strings"

// convert.go folds the participle parse tree (grammar.go) down into the
// semantic tree (ast.go). Precedence-climbing wrapper nodes that carry
// no operator (a parseOr with a single parseAnd and no Rest, etc.)
// collapse away entirely, so every other package only ever deals with
// Column/Literal/Binary/... nodes, never the grammar's intermediate
// levels.

func convertStatement(p *parseSelectStatement) *Select {
	sel := convertSelect(&p.Core)
	if p.With != nil {
		sel.With = convertWith(p.With)
	}
	return sel
}

func convertWith(p *parseWith) *With {
	w := &With{}
	for _, c := range p.CTEs {
		w.CTEs = append(w.CTEs, &CTE{
			Alias: c.Alias,
			Query: convertStatement(c.Query),
		})
	}
	return w
}

func convertSelect(p *parseSelect) *Select {
	sel := &Select{}
	for _, it := range p.Items {
		item := &SelectItem{Expr: convertOr(&it.Expr)}
		if it.Alias != nil {
			item.Alias = *it.Alias
		}
		sel.Items = append(sel.Items, item)
	}
	if p.From != nil {
		sel.From = convertFrom(p.From)
	}
	if p.Where != nil {
		sel.Where = convertOr(&p.Where.Expr)
	}
	if p.GroupBy != nil {
		for _, e := range p.GroupBy.Items {
			sel.GroupBy = append(sel.GroupBy, convertOr(e))
		}
	}
	if p.OrderBy != nil {
		for _, it := range p.OrderBy.Items {
			oi := &OrderItem{Expr: convertOr(&it.Expr)}
			if it.Dir != nil && strings.EqualFold(*it.Dir, "DESC") {
				oi.Desc = true
			}
			if it.WithFill != nil {
				oi.WithFill = &WithFill{
					From: convertOrPtr(it.WithFill.From),
					To:   convertOrPtr(it.WithFill.To),
					Step: convertOrPtr(it.WithFill.Step),
				}
			}
			sel.OrderBy = append(sel.OrderBy, oi)
		}
	}
	if p.Limit != nil {
		sel.Limit = &Literal{Kind: LiteralNumber, Text: p.Limit.Value}
	}
	if p.Settings != nil {
		s := &Settings{}
		for _, e := range p.Settings.Items {
			s.Items = append(s.Items, &SettingEntry{Key: e.Key, Value: e.Value})
		}
		sel.Settings = s
	}
	return sel
}

func convertFrom(p *parseFrom) *From {
	f := &From{Source: convertTableExpr(p.Source)}
	for _, j := range p.Joins {
		join := &Join{Table: convertTableExpr(j.Table)}
		if j.Kind != nil {
			join.Kind = strings.ToUpper(*j.Kind)
		}
		if j.On != nil {
			join.On = convertOr(j.On)
		}
		f.Joins = append(f.Joins, join)
	}
	return f
}

func convertTableExpr(p parseTableExpr) TableRef {
	var alias string
	if p.Alias != nil {
		alias = *p.Alias
	}
	switch {
	case p.Func != nil:
		ft := &FuncTable{Name: p.Func.Name, Alias: alias}
		for _, a := range p.Func.Args {
			ft.Args = append(ft.Args, &NamedArg{Name: a.Name, Value: convertOr(&a.Value)})
		}
		return ft
	case p.Sub != nil:
		return &SubqueryTable{Query: convertStatement(p.Sub.Query), Alias: alias}
	default:
		nt := &NamedTable{Name: p.Simple.Name, Alias: alias}
		if p.Simple.Schema != nil {
			nt.Schema = *p.Simple.Schema
		}
		return nt
	}
}

func convertOrPtr(p *parseOr) Expr {
	if p == nil {
		return nil
	}
	return convertOr(p)
}

func convertOr(p *parseOr) Expr {
	left := convertAnd(&p.Left)
	for _, r := range p.Rest {
		left = &Binary{Op: "OR", Left: left, Right: convertAnd(r)}
	}
	return left
}

func convertAnd(p *parseAnd) Expr {
	left := convertNot(&p.Left)
	for _, r := range p.Rest {
		left = &Binary{Op: "AND", Left: left, Right: convertNot(r)}
	}
	return left
}

func convertNot(p *parseNot) Expr {
	e := convertComparison(&p.Expr)
	if p.Not {
		return &Not{Expr: e}
	}
	return e
}

func convertComparison(p *parseComparison) Expr {
	left := convertAdditive(&p.Left)
	if p.Between != nil {
		return &Between{
			Target: left,
			Low:    convertAdditive(&p.Between.Low),
			High:   convertAdditive(&p.Between.High),
		}
	}
	if p.Cmp != nil {
		return &Binary{Op: p.Cmp.Op, Left: left, Right: convertAdditive(&p.Cmp.Right)}
	}
	return left
}

func convertAdditive(p *parseAdditive) Expr {
	left := convertMultiplicative(&p.Left)
	for _, op := range p.Ops {
		left = &Binary{Op: op.Op, Left: left, Right: convertMultiplicative(&op.Right)}
	}
	return left
}

func convertMultiplicative(p *parseMultiplicative) Expr {
	left := convertUnary(&p.Left)
	for _, op := range p.Ops {
		left = &Binary{Op: op.Op, Left: left, Right: convertUnary(&op.Right)}
	}
	return left
}

func convertUnary(p *parseUnary) Expr {
	e := convertPrimary(&p.Primary)
	if p.Neg {
		return &Neg{Expr: e}
	}
	return e
}

func convertPrimary(p *parsePrimary) Expr {
	switch {
	case p.Func != nil:
		fc := &FuncCall{Name: p.Func.Name}
		for _, a := range p.Func.Args {
			fc.Args = append(fc.Args, convertOr(a))
		}
		if p.Func.Args2 != nil {
			for _, a := range p.Func.Args2.Args {
				fc.Args2 = append(fc.Args2, convertOr(a))
			}
			if fc.Args2 == nil {
				fc.Args2 = []Expr{}
			}
		}
		return fc
	case p.Star != nil:
		s := &Star{}
		if p.Star.Table != nil {
			s.Table = *p.Star.Table
		}
		return s
	case p.Column != nil:
		c := &Column{Name: p.Column.Name}
		if p.Column.Table != nil {
			c.Table = *p.Column.Table
		}
		return c
	case p.Placeholder != nil:
		return parsePlaceholderText(*p.Placeholder)
	case p.Literal != nil:
		return convertLiteral(p.Literal)
	default:
		return convertOr(p.Sub)
	}
}

func convertLiteral(p *parseLiteral) Expr {
	switch {
	case p.Null:
		return &Literal{Kind: LiteralNull, Text: "NULL"}
	case p.Bool != nil:
		return &Literal{Kind: LiteralBool, Text: strings.ToUpper(*p.Bool)}
	case p.Number != nil:
		return &Literal{Kind: LiteralNumber, Text: *p.Number}
	default:
		return &Literal{Kind: LiteralString, Text: *p.Str}
	}
}

// parsePlaceholderText turns the raw {name:Type} token (spacing and all)
// into a Placeholder node.
func parsePlaceholderText(raw string) *Placeholder {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}"))
	parts := strings.SplitN(inner, ":", 2)
	ph := &Placeholder{Name: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		ph.Type = strings.TrimSpace(parts[1])
	}
	return ph
}
