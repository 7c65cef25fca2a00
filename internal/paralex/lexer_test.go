package paralex

import (
	"testing"

	"github.com/naojsoft/oscript/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeLeadingWordIsID(t *testing.T) {
	res := Tokenize("exptime\n", 1)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, ID, res.Tokens[0].Kind)
	assert.Equal(t, "EXPTIME", res.Tokens[0].Value)
	assert.Equal(t, NEWLINE, res.Tokens[1].Kind)
}

func TestTokenizeWordAfterEqualsOutsideParensIsFreeText(t *testing.T) {
	// Free text is read one word at a time (para_lexer.py's t_STR
	// matches a single word); a multi-word value becomes a run of STR
	// tokens, not one swallowed blob.
	res := Tokenize("desc = this is free text\n", 1)
	kinds := make([]token.Kind, 0, len(res.Tokens))
	values := make([]string, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		kinds = append(kinds, tok.Kind)
		values = append(values, tok.Value)
	}
	assert.Equal(t, []token.Kind{ID, EQ, STR, STR, STR, STR, NEWLINE}, kinds)
	assert.Equal(t, []string{"DESC", "=", "this", "is", "free", "text", "\n"}, values)
}

func TestTokenizeConditionListInsideParens(t *testing.T) {
	// Inside parens, the key of each "key = value" pair is an ID (the
	// word right after '(' or a comma), but the value stays STR, the
	// same shape case_cond_element ::= ID EQ STR expects.
	res := Tokenize("cond (mode = spec, filter = r)\n", 1)
	kinds := make([]token.Kind, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		ID, LPAREN, ID, EQ, STR, COMMA, ID, EQ, STR, RPAREN, NEWLINE,
	}, kinds)
}

func TestTokenizeCommaOutsideParensDoesNotResetIDState(t *testing.T) {
	// A top-level comma (e.g. SET=R,V,B with no enclosing parens) keeps
	// reading STR: only a comma inside parens hands the ID slot back to
	// the next word (para_lexer.py's t_COMMA checks
	// isTokenWithinParenthesis).
	res := Tokenize("a = 1, b = 2\n", 1)
	require.True(t, len(res.Tokens) >= 6)
	assert.Equal(t, STR, res.Tokens[2].Kind)
	assert.Equal(t, "1", res.Tokens[2].Value)
	assert.Equal(t, STR, res.Tokens[4].Kind)
	assert.Equal(t, "b", res.Tokens[4].Value)
}

func TestTokenizeCommaInsideParensResetsIDState(t *testing.T) {
	res := Tokenize("set (a,b)\n", 1)
	kinds := make([]token.Kind, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{ID, LPAREN, ID, COMMA, ID, RPAREN, NEWLINE}, kinds)
}

func TestTokenizeQuotedAndBracketedAndSigilForms(t *testing.T) {
	res := Tokenize(`val = "quoted text" [raw] @reg !alias &func %fstr`+"\n", 1)
	var kinds []token.Kind
	for _, tok := range res.Tokens {
		kinds = append(kinds, tok.Kind)
	}
	assert.Contains(t, kinds, QSTR)
	assert.Contains(t, kinds, LSTR)
	assert.Contains(t, kinds, REGREF)
	assert.Contains(t, kinds, ALIASREF)
	assert.Contains(t, kinds, FUNCREF)
	assert.Contains(t, kinds, FSTR)
}

func TestTokenizeCommentIsDiscarded(t *testing.T) {
	res := Tokenize("foo # a comment\nbar\n", 1)
	require.Len(t, res.Tokens, 4)
	assert.Equal(t, "FOO", res.Tokens[0].Value)
	assert.Equal(t, NEWLINE, res.Tokens[1].Kind)
	assert.Equal(t, "BAR", res.Tokens[2].Value)
}
