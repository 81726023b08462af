package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sechecker/sechecker/internal/types"
)

func TestAnalyze_Fixture(t *testing.T) {
	views, err := Analyze(Config{
		Policy:       "../../internal/policy/testdata/policy.yaml",
		FileContexts: "../../internal/policy/testdata/file_contexts",
		Modules:      []string{"domain_and_file_type", "find_*"},
	})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "domain_and_file_type", views[2].Name)
	assert.True(t, ShouldFail(views, types.SevHigh))

	var buf bytes.Buffer
	require.NoError(t, MarshalViews(&buf, views))
	back, err := UnmarshalViews(&buf)
	require.NoError(t, err)
	require.Len(t, back, 3)
	it, ok := back[2].Result.Item("weird_t")
	require.True(t, ok)
	assert.Equal(t, types.SevHigh, it.Severity())
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(Config{})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = Analyze(Config{Policy: "../../internal/policy/testdata/policy.yaml", Modules: []string{"nothing_here"}})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestModuleNames(t *testing.T) {
	assert.Equal(t, []string{"find_domains", "find_file_types", "domain_and_file_type", "attribs_wo_types", "unused_bools"}, ModuleNames())
}
