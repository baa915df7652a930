package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRuntimeConfigFromEnv(t *testing.T) {
	testCases := []struct {
		name       string
		env        map[string]string
		assertions func(*testing.T, RuntimeConfig)
	}{
		{
			name: "defaults",
			assertions: func(t *testing.T, cfg RuntimeConfig) {
				require.Equal(t, "http://localhost:8080/orchestrator", cfg.APIURL)
				require.Empty(t, cfg.APIToken)
				require.Equal(t, time.Minute, cfg.RequestTimeout)
				require.False(t, cfg.ApplicationMetricsEnabled)
				require.True(t, cfg.LockedKeysEnabled)
				require.False(t, cfg.ConfigApprovalEnabled)
				require.Equal(t, 30*time.Second, cfg.ScopedVariableCacheTTL)
				require.NoError(t, cfg.Validate())
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"DEVTRON_API_URL":                "https://devtron.example.com/orchestrator",
				"DEVTRON_API_TOKEN":              "secret",
				"REQUEST_TIMEOUT":                "5s",
				"APPLICATION_METRICS_ENABLED":    "true",
				"FEATURE_LOCKED_KEYS_ENABLE":     "false",
				"FEATURE_CONFIG_APPROVAL_ENABLE": "true",
				"SCOPED_VARIABLE_CACHE_TTL":      "0s",
			},
			assertions: func(t *testing.T, cfg RuntimeConfig) {
				require.Equal(t, "https://devtron.example.com/orchestrator", cfg.APIURL)
				require.Equal(t, "secret", cfg.APIToken)
				require.Equal(t, 5*time.Second, cfg.RequestTimeout)
				require.True(t, cfg.ApplicationMetricsEnabled)
				require.False(t, cfg.LockedKeysEnabled)
				require.True(t, cfg.ConfigApprovalEnabled)
				require.Zero(t, cfg.ScopedVariableCacheTTL)
				require.NoError(t, cfg.Validate())
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			for k, v := range testCase.env {
				t.Setenv(k, v)
			}
			testCase.assertions(t, RuntimeConfigFromEnv())
		})
	}
}

func TestRuntimeConfigFromEnvPanicsOnBadValue(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	require.Panics(t, func() { RuntimeConfigFromEnv() })
}

func TestRuntimeConfigValidate(t *testing.T) {
	valid := RuntimeConfig{
		APIURL:         "http://localhost:8080",
		RequestTimeout: time.Second,
	}
	require.NoError(t, valid.Validate())

	badScheme := valid
	badScheme.APIURL = "ftp://example.com"
	require.Error(t, badScheme.Validate())

	badURL := valid
	badURL.APIURL = "http://[::1"
	require.Error(t, badURL.Validate())

	noTimeout := valid
	noTimeout.RequestTimeout = 0
	require.Error(t, noTimeout.Validate())

	negativeTTL := valid
	negativeTTL.ScopedVariableCacheTTL = -time.Second
	require.Error(t, negativeTTL.Validate())
}
