package sqlast

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// grammar.go holds the participle parse-tree types. These mirror
// pseudomuto/housekeeper's pkg/parser shape (a struct-tag grammar over a
// simple lexer) but describe SELECT statements instead of DDL. The parse
// tree stays close to the token stream; convert.go folds it down into
// the ast.go node types the rest of the package works with.

var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Placeholder", Pattern: `\{\s*[A-Za-z_][A-Za-z0-9_]*\s*:\s*[A-Za-z0-9_]+\s*\}`},
	{Name: "String", Pattern: `'(?:[^'\\]|\\.)*'`},
	{Name: "Number", Pattern: `\d+\.\d+([eE][+-]?\d+)?|\d+[eE][+-]?\d+|\d+`},
	// Reserved words lex as Keyword, not Ident, so an optional alias
	// (@Ident) never swallows the keyword that opens the next clause.
	{Name: "Keyword", Pattern: `\b(?i:SELECT|DISTINCT|FROM|WHERE|GROUP|BY|ORDER|LIMIT|SETTINGS|WITH|AS|JOIN|INNER|LEFT|RIGHT|FULL|CROSS|ON|AND|OR|NOT|BETWEEN|ASC|DESC|FILL|TO|STEP|NULL|TRUE|FALSE)\b`},
	{Name: "Ident", Pattern: "`[^`]*`|[A-Za-z_][A-Za-z0-9_]*"},
	{Name: "Operator", Pattern: `<=|>=|!=|<>|[-+*/%=<>(),.;]`},
})

var sqlParser = participle.MustBuild[parseSelectStatement](
	participle.Lexer(sqlLexer),
	participle.CaseInsensitive("Ident", "Keyword"),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(4),
)

type parseSelectStatement struct {
	With *parseWith `@@?`
	Core parseSelect `@@`
}

type parseWith struct {
	CTEs []*parseCTE `"WITH" @@ ("," @@)*`
}

type parseCTE struct {
	Alias string                `@Ident`
	Query *parseSelectStatement `"AS" "(" @@ ")"`
}

type parseSelect struct {
	Distinct bool           `"SELECT" @"DISTINCT"?`
	Items    []*parseItem   `@@ ("," @@)*`
	From     *parseFrom     `("FROM" @@)?`
	Where    *parseWhere    `("WHERE" @@)?`
	GroupBy  *parseGroupBy  `("GROUP" "BY" @@)?`
	OrderBy  *parseOrderBy  `("ORDER" "BY" @@)?`
	Limit    *parseLimit    `("LIMIT" @@)?`
	Settings *parseSettings `("SETTINGS" @@)?`
}

type parseItem struct {
	Expr  parseOr `@@`
	Alias *string `("AS"? @Ident)?`
}

type parseFrom struct {
	Source parseTableExpr `@@`
	Joins  []*parseJoin   `@@*`
}

type parseJoin struct {
	Kind  *string        `(@("INNER" | "LEFT" | "RIGHT" | "FULL" | "CROSS"))? "JOIN"`
	Table parseTableExpr `@@`
	On    *parseOr       `("ON" @@)?`
}

type parseTableExpr struct {
	Func   *parseFuncTable     `(  @@`
	Sub    *parseSubqueryTable `|  @@`
	Simple *parseSimpleTable   `|  @@ )`
	Alias  *string             `("AS"? @Ident)?`
}

type parseSimpleTable struct {
	Schema *string `(@Ident ".")?`
	Name   string  `@Ident`
}

type parseFuncTable struct {
	Name string           `@Ident`
	Args []*parseNamedArg `"(" (@@ ("," @@)*)? ")"`
}

type parseNamedArg struct {
	Name  string  `@Ident`
	Value parseOr `"=" @@`
}

type parseSubqueryTable struct {
	Query *parseSelectStatement `"(" @@ ")"`
}

type parseWhere struct {
	Expr parseOr `@@`
}

type parseGroupBy struct {
	Items []*parseOr `@@ ("," @@)*`
}

type parseOrderBy struct {
	Items []*parseOrderItem `@@ ("," @@)*`
}

type parseOrderItem struct {
	Expr     parseOr        `@@`
	Dir      *string        `@("ASC" | "DESC")?`
	WithFill *parseWithFill `@@?`
}

type parseWithFill struct {
	From *parseOr `"WITH" "FILL" ("FROM" @@)?`
	To   *parseOr `("TO" @@)?`
	Step *parseOr `("STEP" @@)?`
}

type parseLimit struct {
	Value string `@Number`
}

type parseSettings struct {
	Items []*parseSettingEntry `@@ ("," @@)*`
}

type parseSettingEntry struct {
	Key   string `@Ident`
	Value string `"=" (@Number | @String | @Ident)`
}

// Boolean/arithmetic expression grammar, precedence low to high:
// OR > AND > NOT > comparison/BETWEEN > additive > multiplicative > unary > primary.

type parseOr struct {
	Left parseAnd    `@@`
	Rest []*parseAnd `("OR" @@)*`
}

type parseAnd struct {
	Left parseNot    `@@`
	Rest []*parseNot `("AND" @@)*`
}

type parseNot struct {
	Not  bool            `@"NOT"?`
	Expr parseComparison `@@`
}

type parseComparison struct {
	Left    parseAdditive     `@@`
	Between *parseBetweenRest `(  @@`
	Cmp     *parseCmpRest     `|  @@ )?`
}

type parseBetweenRest struct {
	Low  parseAdditive `"BETWEEN" @@`
	High parseAdditive `"AND" @@`
}

type parseCmpRest struct {
	Op    string        `@("<=" | ">=" | "!=" | "<>" | "=" | "<" | ">")`
	Right parseAdditive `@@`
}

type parseAdditive struct {
	Left parseMultiplicative `@@`
	Ops  []*parseAdditiveOp  `@@*`
}

type parseAdditiveOp struct {
	Op    string              `@("+" | "-")`
	Right parseMultiplicative `@@`
}

type parseMultiplicative struct {
	Left parseUnary    `@@`
	Ops  []*parseMulOp `@@*`
}

type parseMulOp struct {
	Op    string     `@("*" | "/" | "%")`
	Right parseUnary `@@`
}

type parseUnary struct {
	Neg     bool         `@"-"?`
	Primary parsePrimary `@@`
}

type parsePrimary struct {
	Func        *parseFuncCall  `(  @@`
	Star        *parseStar      `|  @@`
	Column      *parseColumnRef `|  @@`
	Placeholder *string         `|  @Placeholder`
	Literal     *parseLiteral   `|  @@`
	Sub         *parseOr        `|  "(" @@ ")" )`
}

type parseFuncCall struct {
	Name  string      `@Ident`
	Args  []*parseOr  `"(" (@@ ("," @@)*)? ")"`
	Args2 *parseArgs2 `("(" @@ ")")?`
}

type parseArgs2 struct {
	Args []*parseOr `(@@ ("," @@)*)?`
}

type parseStar struct {
	Table *string `(@Ident ".")? "*"`
}

type parseColumnRef struct {
	Table *string `(@Ident ".")?`
	Name  string  `@Ident`
}

type parseLiteral struct {
	Null   bool    `  @"NULL"`
	Bool   *string `| @("TRUE" | "FALSE")`
	Number *string `| @Number`
	Str    *string `| @String`
}
