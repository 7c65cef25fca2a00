package sklex

import (
	"testing"

	"github.com/naojsoft/oscript/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizePunctuationAndOperators(t *testing.T) {
	res := Tokenize("( ) , ; = == != >= <= > < + - * /", 1)
	require.Zero(t, res.Errors)
	kinds := make([]token.Kind, len(res.Tokens))
	for i, tok := range res.Tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		LPAREN, RPAREN, COMMA, SEMICOLON, ASSIGN, EQ, NE, GE, LE, GT, LT, ADD, SUB, MUL, DIV,
	}, kinds)
}

func TestTokenizeAllDigitIDIsRetaggedNum(t *testing.T) {
	res := Tokenize("12345", 1)
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, NUM, res.Tokens[0].Kind)
	assert.Equal(t, "12345", res.Tokens[0].Value)
}

func TestTokenizeFloatIsNum(t *testing.T) {
	res := Tokenize("3.14", 1)
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, NUM, res.Tokens[0].Kind)
	assert.Equal(t, "3.14", res.Tokens[0].Value)
}

func TestTokenizeIdentifierFoldsCaseAndAllowsDotColon(t *testing.T) {
	res := Tokenize("tscl.ag_track:sub1", 1)
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, ID, res.Tokens[0].Kind)
	assert.Equal(t, "TSCL.AG_TRACK:SUB1", res.Tokens[0].Value)
}

func TestTokenizeReservedWordsAreCaseInsensitive(t *testing.T) {
	res := Tokenize("if while ELIF Catch", 1)
	require.Len(t, res.Tokens, 4)
	assert.Equal(t, []token.Kind{IF, WHILE, ELIF, CATCH}, []token.Kind{
		res.Tokens[0].Kind, res.Tokens[1].Kind, res.Tokens[2].Kind, res.Tokens[3].Kind,
	})
}

func TestTokenizeSectionalMarkers(t *testing.T) {
	res := Tokenize(":START\n:MAIN_START\n:MAIN_END\n:END", 1)
	require.Len(t, res.Tokens, 4)
	assert.Equal(t, []token.Kind{START, MAINSTART, MAINEND, END}, []token.Kind{
		res.Tokens[0].Kind, res.Tokens[1].Kind, res.Tokens[2].Kind, res.Tokens[3].Kind,
	})
}

func TestTokenizeStarForms(t *testing.T) {
	res := Tokenize("*IF *ELIF *ELSE *ENDIF *FOR *ENDFOR *SET *SUB", 1)
	require.Len(t, res.Tokens, 8)
	want := []token.Kind{STARIF, STARELIF, STARELSE, STARENDI, STARFOR, STARENDF, STARSET, STARSUB}
	for i, k := range want {
		assert.Equal(t, k, res.Tokens[i].Kind)
	}
}

func TestTokenizeReferenceSigils(t *testing.T) {
	res := Tokenize("$foo @bar!baz", 1)
	require.GreaterOrEqual(t, len(res.Tokens), 2)
	assert.Equal(t, IDREF, res.Tokens[0].Kind)
	assert.Equal(t, "foo", res.Tokens[0].Value)
	assert.Equal(t, REGREF, res.Tokens[1].Kind)
	assert.Equal(t, "bar", res.Tokens[1].Value)
	assert.Equal(t, ALIASREF, res.Tokens[2].Kind)
	assert.Equal(t, "baz", res.Tokens[2].Value)
}

func TestTokenizeGetFNo(t *testing.T) {
	res := Tokenize("&GET_F_NO[1]", 1)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, GETFNO, res.Tokens[0].Kind)
	assert.Equal(t, LSTR, res.Tokens[1].Kind)
	assert.Equal(t, "1", res.Tokens[1].Value)
}

func TestTokenizeQuotedAndBracketedStrings(t *testing.T) {
	res := Tokenize(`"hello world" 'single quoted' [raw text here]`, 1)
	require.Len(t, res.Tokens, 3)
	assert.Equal(t, QSTR, res.Tokens[0].Kind)
	assert.Equal(t, "hello world", res.Tokens[0].Value)
	assert.Equal(t, QSTR, res.Tokens[1].Kind)
	assert.Equal(t, "single quoted", res.Tokens[1].Value)
	assert.Equal(t, LSTR, res.Tokens[2].Kind)
	assert.Equal(t, "raw text here", res.Tokens[2].Value)
}

func TestTokenizeCommentsAreDiscardedAndAdvanceLine(t *testing.T) {
	res := Tokenize("ID1 # a trailing comment\nID2", 1)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, 1, res.Tokens[0].Line)
	assert.Equal(t, 2, res.Tokens[1].Line)
}

func TestTokenizeLineContinuationDoesNotEmitToken(t *testing.T) {
	res := Tokenize("ID1 \\\nID2", 1)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, 1, res.Tokens[0].Line)
	assert.Equal(t, 2, res.Tokens[1].Line)
}

func TestTokenizeUnknownCharacterAccumulatesErrorAndContinues(t *testing.T) {
	res := Tokenize("ID1 ~ ID2", 1)
	require.Equal(t, 1, res.Errors)
	require.Len(t, res.ErrInfo, 1)
	assert.Equal(t, "~", res.ErrInfo[0].Token)
	require.Len(t, res.Tokens, 2)
	assert.Equal(t, "ID1", res.Tokens[0].Value)
	assert.Equal(t, "ID2", res.Tokens[1].Value)
}
