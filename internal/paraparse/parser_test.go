package paraparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberAndCharParamDefs(t *testing.T) {
	// spec §8 scenario 5's literal worked example.
	src := "EXPTIME TYPE=NUMBER MIN=0 MAX=3600 DEFAULT=10\n" +
		"FILTER TYPE=CHAR SET=(R,V,B) DEFAULT=R\n"
	table, errs := Parse(src, 1)
	require.Empty(t, errs)

	exptime, ok := table.Defs["EXPTIME"]
	require.True(t, ok)
	spec, err := exptime.Resolve(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "NUMBER", spec.Type)
	assert.Equal(t, "0", spec.Min)
	assert.Equal(t, "3600", spec.Max)
	assert.Equal(t, "10", spec.Default)

	filter, ok := table.Defs["FILTER"]
	require.True(t, ok)
	spec, err = filter.Resolve(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "CHAR", spec.Type)
	assert.Equal(t, []string{"R", "V", "B"}, spec.Set)
	assert.Equal(t, "R", spec.Default)

	values := filter.GetAllParamValueList()
	assert.Subset(t, values, []string{"R", "V", "B"})
}

func TestParseCaseConditionalFirstMatchWins(t *testing.T) {
	src := "FILTER CASE=(MODE=SPEC) TYPE=CHAR DEFAULT=R\n" +
		"FILTER CASE=(MODE=IMAGE) TYPE=CHAR DEFAULT=G\n" +
		"FILTER TYPE=CHAR DEFAULT=CLEAR\n"
	table, errs := Parse(src, 1)
	require.Empty(t, errs)
	def := table.Defs["FILTER"]
	require.NotNil(t, def)
	require.Len(t, def.Conditions, 2)

	spec, err := def.Resolve(map[string]string{"MODE": "SPEC"})
	require.NoError(t, err)
	assert.Equal(t, "R", spec.Default)

	spec, err = def.Resolve(map[string]string{"MODE": "IMAGE"})
	require.NoError(t, err)
	assert.Equal(t, "G", spec.Default)

	spec, err = def.Resolve(map[string]string{"MODE": "OTHER"})
	require.NoError(t, err)
	assert.Equal(t, "CLEAR", spec.Default)
}

func TestResolveNoDefaultErrors(t *testing.T) {
	table, errs := Parse("FILTER CASE=(MODE=SPEC) TYPE=CHAR DEFAULT=R\n", 1)
	require.Empty(t, errs)
	def := table.Defs["FILTER"]
	_, err := def.Resolve(map[string]string{"MODE": "IMAGE"})
	require.Error(t, err)
}

func TestParseSetListStripsNopSentinel(t *testing.T) {
	table, errs := Parse("FILTER TYPE=CHAR SET=(R,V,NOP)\n", 1)
	require.Empty(t, errs)
	def := table.Defs["FILTER"]
	spec, err := def.Resolve(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, []string{"R", "V"}, spec.Set)
	assert.True(t, spec.Nop)
	assert.Contains(t, def.GetAllParamValueList(), "NOP")
}

func TestParseStatusAliasStripsBang(t *testing.T) {
	table, errs := Parse("FILTER TYPE=CHAR DEFAULT=R STATUS=!FILTER_ALIAS\n", 1)
	require.Empty(t, errs)
	def := table.Defs["FILTER"]
	require.Len(t, def.Aliases, 1)
	assert.Equal(t, "FILTER_ALIAS", def.Aliases[0])
}

func TestParseAccumulatesErrorsAndContinues(t *testing.T) {
	src := "BAD ===\n" +
		"GOOD TYPE=NUMBER DEFAULT=1\n"
	table, errs := Parse(src, 1)
	require.NotEmpty(t, errs)
	def, ok := table.Defs["GOOD"]
	require.True(t, ok)
	spec, err := def.Resolve(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "1", spec.Default)
}
