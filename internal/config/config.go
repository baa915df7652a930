package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// RuntimeConfig holds the settings the deployment template engine needs at
// run time. It is read once at start-up and handed to constructors instead of
// being looked up from the environment on demand.
type RuntimeConfig struct {
	// APIURL is the base URL of the orchestrator API.
	APIURL string `envconfig:"DEVTRON_API_URL" default:"http://localhost:8080/orchestrator"`
	// APIToken is sent with every request to the orchestrator API.
	APIToken string `envconfig:"DEVTRON_API_TOKEN"`
	// RequestTimeout bounds every individual API request.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	// ApplicationMetricsEnabled exposes the application metrics toggle.
	ApplicationMetricsEnabled bool `envconfig:"APPLICATION_METRICS_ENABLED" default:"false"`
	// LockedKeysEnabled turns on locked-key redaction and lock eligibility
	// checks on save.
	LockedKeysEnabled bool `envconfig:"FEATURE_LOCKED_KEYS_ENABLE" default:"true"`
	// ConfigApprovalEnabled turns on drafts and approvals for protected
	// configurations.
	ConfigApprovalEnabled bool `envconfig:"FEATURE_CONFIG_APPROVAL_ENABLE" default:"false"`
	// ScopedVariableCacheTTL is how long a scoped variable resolution is
	// reused for identical requests.
	ScopedVariableCacheTTL time.Duration `envconfig:"SCOPED_VARIABLE_CACHE_TTL" default:"30s"`
}

// RuntimeConfigFromEnv returns a RuntimeConfig populated from environment
// variables.
func RuntimeConfigFromEnv() RuntimeConfig {
	cfg := RuntimeConfig{}
	envconfig.MustProcess("", &cfg)
	return cfg
}

// Validate checks the configuration for values that cannot work.
func (c RuntimeConfig) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid DEVTRON_API_URL %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid DEVTRON_API_URL %q: scheme must be http or https", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.ScopedVariableCacheTTL < 0 {
		return fmt.Errorf("SCOPED_VARIABLE_CACHE_TTL must not be negative, got %s", c.ScopedVariableCacheTTL)
	}
	return nil
}
