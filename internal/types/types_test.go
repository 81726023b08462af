package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	sevs := Severities()
	for i := 1; i < len(sevs); i++ {
		assert.Less(t, int(sevs[i-1]), int(sevs[i]))
	}
	assert.Equal(t, SevDanger, MaxSeverity(SevLow, SevDanger, SevHigh))
	assert.Equal(t, SevNone, MaxSeverity())
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, SevHigh, s)
	_, err = ParseSeverity("critical")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseEntityKind(t *testing.T) {
	k, err := ParseEntityKind("file_context")
	require.NoError(t, err)
	assert.Equal(t, KindFileContext, k)
	_, err = ParseEntityKind("socket")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOutputFormatIdentities(t *testing.T) {
	assert.Equal(t, OutHeader, OutQuiet&OutHeader)
	assert.Equal(t, OutList, OutShort&OutList)
	assert.Equal(t, OutProof, OutLong&OutProof)
	for _, f := range []OutputFormat{OutStats, OutList, OutProof, OutHeader} {
		assert.True(t, OutVerbose.Has(f), "verbose lacks %s", f)
	}
	assert.False(t, OutQuiet.Has(OutList))
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
	}{
		{"short", OutShort},
		{"quiet", OutQuiet},
		{"long", OutLong},
		{"Verbose", OutVerbose},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := ParseOutputFormat("loud")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCycleErrorUnwraps(t *testing.T) {
	err := &CycleError{Module: "a", Path: []string{"a", "b", "a"}}
	assert.ErrorIs(t, err, ErrCyclicDependency)
	assert.Contains(t, err.Error(), "a -> b -> a")
}
