package profiling

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/devlanding/leads-api/config"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileTypes_Default(t *testing.T) {
	got, err := parseProfileTypes("")
	require.NoError(t, err)
	assert.Equal(t, defaultProfileTypes, got)
	assert.NotContains(t, got, pyroscope.ProfileMutexCount)
}

func TestParseProfileTypes_Custom(t *testing.T) {
	got, err := parseProfileTypes("cpu, inuse_space,mutex,cpu,")
	require.NoError(t, err)

	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
	}, got)
}

func TestParseProfileTypes_Invalid(t *testing.T) {
	_, err := parseProfileTypes("cpu,unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported O11Y_PROFILING_SAMPLE_TYPES")
}

func TestBuildTags(t *testing.T) {
	got := buildTags(Identity{
		Service:     "leads-api",
		Namespace:   "devlanding",
		Version:     "2.0.0",
		Instance:    " ",
		Environment: "production",
	})

	assert.Equal(t, map[string]string{
		"service_name":    "leads-api",
		"namespace":       "devlanding",
		"service_version": "2.0.0",
		"environment":     "production",
	}, got)
}

func TestDo_LabelsOperation(t *testing.T) {
	var label string
	var found bool

	Do(context.Background(), OperationSaveLead, func(ctx context.Context) {
		label, found = pprof.Label(ctx, "operation")
	})

	assert.True(t, found)
	assert.Equal(t, "save_qualified_lead", label)
}

func TestInitProfiler_Disabled(t *testing.T) {
	stop, err := InitProfiler(config.ProfilingConfig{Enabled: false}, Identity{Service: "leads-api"})
	require.NoError(t, err)
	assert.NotPanics(t, stop)
}

func TestInitProfiler_MissingEndpoint(t *testing.T) {
	_, err := InitProfiler(config.ProfilingConfig{Enabled: true, Endpoint: "  "}, Identity{Service: "leads-api"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profiling endpoint is required")
}

func TestInitProfiler_InvalidSampleTypes(t *testing.T) {
	_, err := InitProfiler(config.ProfilingConfig{
		Enabled:     true,
		Endpoint:    "http://pyroscope:4040",
		SampleTypes: "heap",
	}, Identity{Service: "leads-api"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heap")
}
