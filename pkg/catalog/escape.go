package catalog

import (
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// queryLexer splits user queries into double-quoted phrases and bare words.
// Inner quotes inside a phrase use SQL-style doubling.
var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Phrase", Pattern: `"(?:""|[^"])*"`},
	{Name: "Word", Pattern: `\S+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var (
	ftsOperator = regexp.MustCompile(`^(?i:AND|OR|NOT|NEAR(/\d+)?)$`)
	prefixTerm  = regexp.MustCompile(`^\w+\*$`)
)

// ftsSpecial is the character set FTS5 assigns syntax to in bare terms.
const ftsSpecial = `-*^:()"`

// EscapeQuery rewrites a user query so terms containing FTS5 syntax
// characters match literally. Quoted phrases pass through unchanged, as do
// the boolean operators (AND, OR, NOT, NEAR, NEAR/n) and trailing-asterisk
// prefix terms. Everything else containing a syntax character is wrapped in
// double quotes with inner quotes doubled.
//
// The result never triggers an FTS5 syntax error for ordinary input, at the
// cost of column filters and grouping being unavailable; use a raw search
// for those.
func EscapeQuery(query string) string {
	lx, err := queryLexer.LexString("", query)
	if err != nil {
		// \S+ accepts any non-space run, so lexing cannot fail on real
		// input; quote the whole query if it somehow does.
		return quoteTerm(query)
	}

	symbols := queryLexer.Symbols()
	phrase, whitespace := symbols["Phrase"], symbols["Whitespace"]

	var out []string
	for {
		tok, err := lx.Next()
		if err != nil || tok.EOF() {
			break
		}
		switch tok.Type {
		case whitespace:
			continue
		case phrase:
			out = append(out, tok.Value)
		default:
			out = append(out, escapeTerm(tok.Value))
		}
	}
	return strings.Join(out, " ")
}

func escapeTerm(term string) string {
	if ftsOperator.MatchString(term) {
		return term
	}
	if prefixTerm.MatchString(term) {
		return term
	}
	if strings.ContainsAny(term, ftsSpecial) {
		return quoteTerm(term)
	}
	return term
}

func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}
