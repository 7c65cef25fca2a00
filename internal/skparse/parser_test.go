package skparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLetAndSet(t *testing.T) {
	src := ":START\nLET X = 1 + 2 IN { ASN Y = X * 3; }\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	require.Equal(t, 1, prog.Len())
	letNode := prog.Child(0)
	assert.Equal(t, "let", letNode.Tag)
	params := letNode.Child(0)
	require.Equal(t, 1, params.Len())
	assert.Equal(t, "X", params.Child(0).Leaf(0))
	body := letNode.Child(1)
	require.Equal(t, 1, body.Len())
	setNode := body.Child(0)
	assert.Equal(t, "set", setNode.Tag)
	assert.Equal(t, "Y", setNode.Child(0).Child(0).Leaf(0))
}

func TestParseIfElifElse(t *testing.T) {
	src := ":START\n" +
		"IF (x == 1) { ASN a = 1; }\n" +
		"ELIF (x == 2) { ASN a = 2; }\n" +
		"ELSE { ASN a = 3; }\n" +
		"ENDIF\n" +
		":END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	require.Equal(t, 1, prog.Len())
	ifNode := prog.Child(0)
	assert.Equal(t, "if", ifNode.Tag)
	assert.Equal(t, 3, ifNode.Len())
	assert.Equal(t, "else", ifNode.Child(2).Tag)
}

func TestParseStarIfUsesStarTerminators(t *testing.T) {
	src := ":START\n*IF (x == 1) { ASN a = 1; } *ENDIF\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	assert.Equal(t, "star_if", prog.Child(0).Tag)
}

func TestParseWhile(t *testing.T) {
	src := ":START\nWHILE (x < 10) { ASN x = x + 1; }\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	assert.Equal(t, "while", prog.Child(0).Tag)
}

func TestParseStarFor(t *testing.T) {
	src := ":START\n*FOR i IN items { EXEC TSCL AG_TRACK; } *ENDFOR\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	assert.Equal(t, "star_for", prog.Child(0).Tag)
}

func TestParseProcDefnAndImport(t *testing.T) {
	src := "DEF myproc(a, b) { RETURN a + b; }\nIMPORT otherlib FROM library\n:START\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	assert.Equal(t, "proc", prog.Child(0).Tag)
	assert.Equal(t, "MYPROC", prog.Child(0).Leaf(0))
	assert.Equal(t, "import", prog.Child(1).Tag)
}

func TestParseDirectDispatchCommand(t *testing.T) {
	src := ":START\nTSCL.AG_TRACK mode=on rate=1.5;\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	cmd := prog.Child(0)
	assert.Equal(t, "dd_cmd", cmd.Tag)
	assert.Equal(t, "TSCL.AG_TRACK", cmd.Leaf(0))
	assert.Equal(t, 2, cmd.Len()-1)
}

func TestParseAbstractCommandWithPositionalParam(t *testing.T) {
	src := ":START\nOPEN_SHUTTER 30;\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	cmd := prog.Child(0)
	assert.Equal(t, "abs_cmd", cmd.Tag)
}

func TestParseAsyncCommand(t *testing.T) {
	src := ":START\nOPEN_SHUTTER,\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	assert.Equal(t, "async", prog.Child(0).Tag)
	assert.Equal(t, "abs_cmd", prog.Child(0).Child(0).Tag)
}

func TestParseExecDispatchesSubsysAndCommand(t *testing.T) {
	src := ":START\nRES = EXEC TSCL AG_TRACK mode=on;\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	execNode := prog.Child(0)
	assert.Equal(t, "exec", execNode.Tag)
	assert.Equal(t, "TSCL", execNode.Leaf(0))
	assert.Equal(t, "AG_TRACK", execNode.Leaf(1))
	assert.Equal(t, "RES", execNode.Leaf(3))
	params := execNode.Child(2)
	require.Equal(t, 1, params.Len())
	assert.Equal(t, "MODE", params.Child(0).Leaf(0))
}

func TestParseRaiseAndCatch(t *testing.T) {
	src := ":START\nCATCH { RAISE \"oops\"; }\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	assert.Equal(t, "catch", prog.Child(0).Tag)
}

func TestParseCatchBindsExceptionVariable(t *testing.T) {
	src := ":START\nCATCH ERR { RAISE \"oops\"; }\n:END\n"
	prog, errs := Parse(src, 1)
	require.Empty(t, errs)
	catchNode := prog.Child(0)
	assert.Equal(t, "catch", catchNode.Tag)
	assert.Equal(t, "ERR", catchNode.Leaf(0))
}

func TestParseAccumulatesErrorsAndRecovers(t *testing.T) {
	src := ":START\nLET = 1;\nASN ok = 2;\n:END\n"
	prog, errs := Parse(src, 1)
	require.NotEmpty(t, errs)
	require.Equal(t, 1, prog.Len())
	setNode := prog.Child(0)
	assert.Equal(t, "set", setNode.Tag)
	assert.Equal(t, "OK", setNode.Child(0).Child(0).Leaf(0))
}
