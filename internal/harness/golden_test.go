package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestTraceSnapshot_MarshalStable(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/reset_and_restart.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := TraceSnapshot{ScenarioName: s.Name, Trace: first.Trace, Final: first.Final}.Marshal()
	require.NoError(t, err)
	b, err := TraceSnapshot{ScenarioName: s.Name, Trace: second.Trace, Final: second.Final}.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"op": "reset"`)
}
