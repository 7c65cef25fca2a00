// Package paralex lexes PARA parameter-definition files. Unlike sklex,
// this lexer is stateful: whether a bare word is an ID or a free-text
// STR depends on parenthesis depth and what token preceded it. Grounded
// on oscript/parse/para_lexer.py's isTokenAnID/isTokenWithinParenthesis
// flags.
package paralex

import (
	"regexp"
	"strings"

	"github.com/naojsoft/oscript/internal/token"
)

const (
	EQ       token.Kind = "EQ"
	LPAREN   token.Kind = "LPAREN"
	RPAREN   token.Kind = "RPAREN"
	COMMA    token.Kind = "COMMA"
	NEWLINE  token.Kind = "NEWLINE"
	ID       token.Kind = "ID"
	STR      token.Kind = "STR"
	QSTR     token.Kind = "QSTR"
	LSTR     token.Kind = "LSTR"
	FSTR     token.Kind = "FSTR"
	REGREF   token.Kind = "REGREF"
	ALIASREF token.Kind = "ALIASREF"
	FUNCREF  token.Kind = "FUNCREF"
)

var (
	qstrRe    = regexp.MustCompile(`^"([^"\\]|\\.)*"`)
	lstrRe    = regexp.MustCompile(`^\[[^\]]*\]`)
	fstrRe    = regexp.MustCompile(`^%[a-zA-Z0-9_.]*`)
	regrefRe  = regexp.MustCompile(`^@[\w_][\w\d_.]*`)
	aliasRe   = regexp.MustCompile(`^![\w_][\w\d_.]*`)
	funcRefRe = regexp.MustCompile(`^&[\w_][\w\d_.]*`)
	wordRe    = regexp.MustCompile(`^[^\s(),=]+`)
)

// Tokenize scans a PARA source buffer. isTokenAnID starts true (a bare
// word at the start of a definition is a parameter name); it flips to
// false once a non-ID token forces the next bare word to be read as
// free text, and flips back to true after an open paren, a comma inside
// parens, or a newline.
func Tokenize(buf string, startLine int) Result {
	var res Result
	line := startLine
	pos := 0
	n := len(buf)

	isTokenAnID := true
	parenDepth := 0

	for pos < n {
		c := buf[pos]

		if c == ' ' || c == '\t' || c == '\r' {
			pos++
			continue
		}
		if c == '#' {
			for pos < n && buf[pos] != '\n' {
				pos++
			}
			continue
		}
		if c == '\n' {
			res.Tokens = append(res.Tokens, token.Token{Kind: NEWLINE, Value: "\n", Line: line})
			line++
			pos++
			isTokenAnID = true
			continue
		}

		rest := buf[pos:]

		switch c {
		case '=':
			res.Tokens = append(res.Tokens, token.Token{Kind: EQ, Value: "=", Line: line})
			pos++
			isTokenAnID = false
			continue
		case '(':
			res.Tokens = append(res.Tokens, token.Token{Kind: LPAREN, Value: "(", Line: line})
			pos++
			parenDepth++
			isTokenAnID = true
			continue
		case ')':
			res.Tokens = append(res.Tokens, token.Token{Kind: RPAREN, Value: ")", Line: line})
			pos++
			if parenDepth > 0 {
				parenDepth--
			}
			isTokenAnID = false
			continue
		case ',':
			res.Tokens = append(res.Tokens, token.Token{Kind: COMMA, Value: ",", Line: line})
			pos++
			// Outside parens a comma does not hand the ID slot back to
			// the next word (para_lexer.py's t_COMMA only resets
			// isTokenAnID when isTokenWithinParenthesis).
			if parenDepth > 0 {
				isTokenAnID = true
			}
			continue
		}

		if m := qstrRe.FindString(rest); m != "" {
			res.Tokens = append(res.Tokens, token.Token{Kind: QSTR, Value: unescape(m[1 : len(m)-1]), Line: line})
			pos += len(m)
			isTokenAnID = false
			continue
		}
		if m := lstrRe.FindString(rest); m != "" {
			res.Tokens = append(res.Tokens, token.Token{Kind: LSTR, Value: m[1 : len(m)-1], Line: line})
			pos += len(m)
			isTokenAnID = false
			continue
		}
		if m := regrefRe.FindString(rest); m != "" {
			res.Tokens = append(res.Tokens, token.Token{Kind: REGREF, Value: m[1:], Line: line})
			pos += len(m)
			isTokenAnID = false
			continue
		}
		if m := aliasRe.FindString(rest); m != "" {
			res.Tokens = append(res.Tokens, token.Token{Kind: ALIASREF, Value: m[1:], Line: line})
			pos += len(m)
			isTokenAnID = false
			continue
		}
		if m := funcRefRe.FindString(rest); m != "" {
			res.Tokens = append(res.Tokens, token.Token{Kind: FUNCREF, Value: m[1:], Line: line})
			pos += len(m)
			isTokenAnID = false
			continue
		}
		if m := fstrRe.FindString(rest); m != "" && m != "%" {
			res.Tokens = append(res.Tokens, token.Token{Kind: FSTR, Value: m[1:], Line: line})
			pos += len(m)
			isTokenAnID = false
			continue
		}

		if m := wordRe.FindString(rest); m != "" {
			// para_lexer.py's t_STR matches one word at a time; the
			// same rule relabels it ID exactly when isTokenAnID is
			// still set (a bare word at the start of a line, inside
			// parens, or right after a comma within parens). Every
			// other word-position token — including every word past
			// the first in a free-text run after '=' — stays STR.
			if isTokenAnID {
				res.Tokens = append(res.Tokens, token.Token{Kind: ID, Value: strings.ToUpper(m), Line: line})
				isTokenAnID = false
			} else {
				res.Tokens = append(res.Tokens, token.Token{Kind: STR, Value: m, Line: line})
			}
			pos += len(m)
			continue
		}

		res.Errors++
		res.ErrInfo = append(res.ErrInfo, token.ErrInfo{
			Line:    line,
			Message: "illegal character",
			Token:   string(c),
		})
		pos++
	}

	return res
}

// Result is the outcome of tokenizing a PARA source buffer.
type Result struct {
	Tokens  []token.Token
	Errors  int
	ErrInfo []token.ErrInfo
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
