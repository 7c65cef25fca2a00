package opeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToNodeDirectDispatchCommand(t *testing.T) {
	// spec §8 scenario 1's literal worked example.
	n, err := ParseToNode(`EXEC TSCL AG_TRACK MODE="ON"`)
	require.NoError(t, err)
	require.Equal(t, "cmdlist", n.Tag)
	cmd := n.Child(0)
	require.NotNil(t, cmd)
	assert.Equal(t, "dd_cmd", cmd.Tag)
	assert.Equal(t, "TSCL.AG_TRACK", cmd.Leaf(0))
	require.Equal(t, 1, cmd.Len()-1)
	p0 := cmd.Child(1)
	require.NotNil(t, p0)
	assert.Equal(t, "MODE", p0.Leaf(0))
	assert.Equal(t, "ON", p0.Child(1).Leaf(0))
}

func TestParseToNodeDirectDispatchWithMultipleParams(t *testing.T) {
	n, err := ParseToNode("EXEC TSCL AG_TRACK mode=on, filter=r")
	require.NoError(t, err)
	cmd := n.Child(0)
	assert.Equal(t, "dd_cmd", cmd.Tag)
	assert.Equal(t, "TSCL.AG_TRACK", cmd.Leaf(0))
	require.Equal(t, 2, cmd.Len()-1)
	assert.Equal(t, "MODE", cmd.Child(1).Leaf(0))
	assert.Equal(t, "FILTER", cmd.Child(2).Leaf(0))
}

func TestParseToNodeAbstractCommand(t *testing.T) {
	n, err := ParseToNode("OPEN_SHUTTER")
	require.NoError(t, err)
	cmd := n.Child(0)
	assert.Equal(t, "abs_cmd", cmd.Tag)
	assert.Equal(t, "OPEN_SHUTTER", cmd.Leaf(0))
	assert.Equal(t, 0, cmd.Len()-1)
}

func TestParseToNodeDottedNameWithoutExecIsAbstractCommand(t *testing.T) {
	// A dot in the name no longer decides dispatch (spec §4.5): only a
	// leading EXEC keyword produces a dd_cmd.
	n, err := ParseToNode("TSCL.AG_TRACK mode=on")
	require.NoError(t, err)
	cmd := n.Child(0)
	assert.Equal(t, "abs_cmd", cmd.Tag)
	assert.Equal(t, "TSCL.AG_TRACK", cmd.Leaf(0))
}

func TestParseToNodePositionalParam(t *testing.T) {
	n, err := ParseToNode("SET_EXPTIME 30.5")
	require.NoError(t, err)
	cmd := n.Child(0)
	p0 := cmd.Child(1)
	require.NotNil(t, p0)
	assert.Equal(t, "", p0.Leaf(0))
}
