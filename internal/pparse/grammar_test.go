package pparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToNodeArithmeticPrecedence(t *testing.T) {
	n, err := ParseToNode("1 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, "binop", n.Tag)
	assert.Equal(t, "+", n.Leaf(0))
	right := n.Child(2)
	require.NotNil(t, right)
	assert.Equal(t, "binop", right.Tag)
	assert.Equal(t, "*", right.Leaf(0))
}

func TestParseToNodeComparisonAndLogic(t *testing.T) {
	n, err := ParseToNode("a == 1 AND b != 2")
	require.NoError(t, err)
	assert.Equal(t, "and", n.Tag)
	left := n.Child(0)
	require.NotNil(t, left)
	assert.Equal(t, "cmp", left.Tag)
	assert.Equal(t, "==", left.Leaf(0))
}

func TestParseToNodeReferenceForms(t *testing.T) {
	n, err := ParseToNode("$foo")
	require.NoError(t, err)
	assert.Equal(t, "varref", n.Tag)
	assert.Equal(t, "FOO", n.Leaf(0))

	n, err = ParseToNode("@bar")
	require.NoError(t, err)
	assert.Equal(t, "regref", n.Tag)

	n, err = ParseToNode("!baz")
	require.NoError(t, err)
	assert.Equal(t, "statusref", n.Tag)

	n, err = ParseToNode("&GET_F_NO[3]")
	require.NoError(t, err)
	assert.Equal(t, "getfno", n.Tag)
	assert.Equal(t, int64(3), n.Leaf(0))
}

func TestParseToNodeFunctionCall(t *testing.T) {
	n, err := ParseToNode(`abs(1, 2)`)
	require.NoError(t, err)
	assert.Equal(t, "call", n.Tag)
	assert.Equal(t, "ABS", n.Leaf(0))
	assert.Equal(t, 2, len(n.Items)-1)
}

func TestParseToNodeUnaryNegationAndParens(t *testing.T) {
	n, err := ParseToNode("-(1 + 2)")
	require.NoError(t, err)
	assert.Equal(t, "neg", n.Tag)
	inner := n.Child(0)
	require.NotNil(t, inner)
	assert.Equal(t, "binop", inner.Tag)
}
