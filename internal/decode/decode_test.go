package decode

import (
	"testing"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStarIfPicksMatchingClause(t *testing.T) {
	e := env.New(nil, nil)
	prog := ast.New("program",
		ast.New("star_if",
			ast.New("clause", ast.New("cmp", "==", ast.New("num", 1.0), ast.New("num", 2.0)), ast.New("block", ast.New("let", "a", ast.New("num", 1.0)))),
			ast.New("else", ast.New("block", ast.New("let", "a", ast.New("num", 9.0)))),
		),
	)
	d := New(e)
	out, errs := d.Decode(prog)
	require.Empty(t, errs)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "let", out.Child(0).Tag)
	assert.Equal(t, 9.0, out.Child(0).Child(1).Leaf(0))
}

func TestDecodeStarForUnrollsCommaList(t *testing.T) {
	e := env.New(nil, nil)
	body := ast.New("block", ast.New("abs_cmd", ast.New("id", "ITEM")))
	prog := ast.New("program",
		ast.New("star_for", "ITEM", ast.New("str", "a, b, c"), body),
	)
	d := New(e)
	out, errs := d.Decode(prog)
	require.Empty(t, errs)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, "a", out.Child(0).Child(0).Leaf(0))
	assert.Equal(t, "c", out.Child(2).Child(0).Leaf(0))
}

func TestDecodeStarSetUnfoldsIntoRuntimeSet(t *testing.T) {
	e := env.New(nil, nil)
	prog := ast.New("program",
		ast.New("star_set", ast.New("flags"), ast.New("params", ast.New("param", "K", ast.New("num", 42.0)))),
	)
	d := New(e)
	out, errs := d.Decode(prog)
	require.Empty(t, errs)
	require.Equal(t, 1, out.Len())
	setNode := out.Child(0)
	assert.Equal(t, "set", setNode.Tag)
	params := setNode.Child(0)
	require.Equal(t, 1, params.Len())
	assert.Equal(t, "K", params.Child(0).Leaf(0))
	assert.Equal(t, 42.0, params.Child(0).Child(1).Leaf(0))
}

func TestDecodeStarSubSplicesNamedBlock(t *testing.T) {
	e := env.New(nil, nil)
	d := New(e)
	d.DefineSub("COMMON", ast.New("block", ast.New("let", "x", ast.New("num", 1.0))))
	prog := ast.New("program", ast.New("star_sub", "COMMON"))
	out, errs := d.Decode(prog)
	require.Empty(t, errs)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "let", out.Child(0).Tag)
}

func TestDecodeStarSubUndefinedIsDecodeError(t *testing.T) {
	e := env.New(nil, nil)
	d := New(e)
	prog := ast.New("program", ast.New("star_sub", "MISSING"))
	_, errs := d.Decode(prog)
	require.NotEmpty(t, errs)
}
