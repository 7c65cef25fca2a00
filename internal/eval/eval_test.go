package eval

import (
	"testing"

	"github.com/naojsoft/oscript/internal/ast"
	"github.com/naojsoft/oscript/internal/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalArithmetic(t *testing.T) {
	e := env.New(nil, nil)
	n := ast.New("binop", "+", ast.New("num", 1.0), ast.New("binop", "*", ast.New("num", 2.0), ast.New("num", 3.0)))
	v, err := Eval(n, e)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestEvalClosureIsIdempotent(t *testing.T) {
	e := env.New(nil, nil)
	calls := 0
	Builtins["COUNTUP"] = func(args []env.Value) (env.Value, error) {
		calls++
		return float64(calls), nil
	}
	defer delete(Builtins, "COUNTUP")

	c := NewClosure(ast.New("call", "COUNTUP"), e)
	v1, err := c.Force()
	require.NoError(t, err)
	v2, err := c.Force()
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
}

func TestEvalVarRefUndefined(t *testing.T) {
	e := env.New(nil, nil)
	_, err := Eval(ast.New("varref", "X"), e)
	require.Error(t, err)
}

func TestEvalVarRefResolvesThroughClosure(t *testing.T) {
	e := env.New(nil, nil)
	e.SetVar("X", NewClosure(ast.New("num", 42.0), e))
	v, err := Eval(ast.New("varref", "X"), e)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestIsTrue(t *testing.T) {
	assert.False(t, IsTrue(nil))
	assert.False(t, IsTrue(0.0))
	assert.False(t, IsTrue(""))
	assert.True(t, IsTrue("x"))
	assert.True(t, IsTrue(1.0))
}

func TestCompareAndLogic(t *testing.T) {
	e := env.New(nil, nil)
	n := ast.New("and", ast.New("cmp", "==", ast.New("num", 1.0), ast.New("num", 1.0)), ast.New("cmp", "!=", ast.New("num", 2.0), ast.New("num", 3.0)))
	v, err := Eval(n, e)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
