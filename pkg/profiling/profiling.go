package profiling

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/devlanding/leads-api/config"
	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

const (
	defaultUploadInterval = 15 * time.Second

	// sampling rates enabled only when the matching profile is requested
	mutexProfileFraction = 5
	blockProfileRate     = 5

	operationLabel = "operation"
)

// Operations tagged on lead intake code paths
const (
	OperationSaveLead       = "save_qualified_lead"
	OperationTestConnection = "test_connection"
)

// Lead intake is write-light and connection-bound, so CPU, allocations and
// goroutines are collected by default. Mutex and block profiles are opt-in.
var defaultProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

var profileTypeMap = map[string][]pyroscope.ProfileType{
	"cpu":           {pyroscope.ProfileCPU},
	"alloc_space":   {pyroscope.ProfileAllocSpace},
	"alloc_objects": {pyroscope.ProfileAllocObjects},
	"inuse_space":   {pyroscope.ProfileInuseSpace},
	"inuse_objects": {pyroscope.ProfileInuseObjects},
	"goroutines":    {pyroscope.ProfileGoroutines},
	"mutex":         {pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration},
	"block":         {pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration},
}

// Identity is attached as tags to every uploaded profile
type Identity struct {
	Service     string
	Namespace   string
	Version     string
	Instance    string
	Environment string
}

// InitProfiler starts continuous profiling. The returned func stops it.
func InitProfiler(cfg config.ProfilingConfig, id Identity) (func(), error) {
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return func() {}, nil
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}
	uploadRate := defaultUploadInterval
	if cfg.UploadIntervalSeconds > 0 {
		uploadRate = time.Duration(cfg.UploadIntervalSeconds) * time.Second
	}

	profileTypes, err := parseProfileTypes(cfg.SampleTypes)
	if err != nil {
		return nil, err
	}
	enableRuntimeSampling(profileTypes)

	appName := strings.TrimSpace(cfg.AppName)
	if appName == "" {
		appName = id.Service
	}
	if appName == "" {
		appName = "leads-api"
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   endpoint,
		UploadRate:      uploadRate,
		ProfileTypes:    profileTypes,
		Tags:            buildTags(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}

	logger.Info("Continuous profiling initialized",
		zap.String("application_name", appName),
		zap.String("endpoint", endpoint),
		zap.Int("profile_types", len(profileTypes)),
		zap.Duration("upload_rate", uploadRate),
	)

	return func() {
		if stopErr := profiler.Stop(); stopErr != nil {
			logger.Error("Failed to stop profiler", zap.Error(stopErr))
		}
	}, nil
}

// Do runs fn with an operation label so samples taken inside it can be
// filtered per lead intake operation. Labels apply even when no profiler runs.
func Do(ctx context.Context, operation string, fn func(context.Context)) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels(operationLabel, operation), fn)
}

func parseProfileTypes(value string) ([]pyroscope.ProfileType, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultProfileTypes, nil
	}

	var types []pyroscope.ProfileType
	seen := make(map[pyroscope.ProfileType]bool)

	for _, raw := range strings.Split(value, ",") {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		mapped, ok := profileTypeMap[key]
		if !ok {
			return nil, fmt.Errorf("unsupported O11Y_PROFILING_SAMPLE_TYPES value: %q", key)
		}
		for _, t := range mapped {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}

	if len(types) == 0 {
		return defaultProfileTypes, nil
	}
	return types, nil
}

// enableRuntimeSampling turns on the runtime rates mutex and block profiles depend on
func enableRuntimeSampling(types []pyroscope.ProfileType) {
	for _, t := range types {
		switch t {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(mutexProfileFraction)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(blockProfileRate)
		}
	}
}

// buildTags drops empty identity fields
func buildTags(id Identity) map[string]string {
	tags := map[string]string{}
	for key, value := range map[string]string{
		"service_name":    id.Service,
		"namespace":       id.Namespace,
		"service_version": id.Version,
		"instance":        id.Instance,
		"environment":     id.Environment,
	} {
		if value = strings.TrimSpace(value); value != "" {
			tags[key] = value
		}
	}
	return tags
}
