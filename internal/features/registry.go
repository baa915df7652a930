// Package features resolves the optional capabilities of the engine once at
// start-up. Each optional behavior has a no-op default that is replaced only
// when its feature is enabled by the runtime configuration.
package features

import (
	"sort"

	"github.com/devtron-labs/dtconfig/internal/config"
	"github.com/devtron-labs/dtconfig/pkg/docdiff"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

// Feature identifies an optional capability.
type Feature string

const (
	// LockedKeys enables hiding locked keys in the editor.
	LockedKeys Feature = "locked-keys"
	// LockEligibility enables splitting changes into those that may be saved
	// and those that touch locked keys.
	LockEligibility Feature = "lock-eligibility"
	// ConfigApproval enables drafts and approvals for protected
	// configurations.
	ConfigApproval Feature = "config-approval"
)

// EligibilityChecker partitions the changes between two documents by lock
// eligibility.
type EligibilityChecker interface {
	Split(unedited, edited *document.Node, cfg lockedkeys.Config) (docdiff.Split, error)
}

// EligibilityCheckerFunc adapts a function to EligibilityChecker.
type EligibilityCheckerFunc func(
	unedited *document.Node,
	edited *document.Node,
	cfg lockedkeys.Config,
) (docdiff.Split, error)

// Split implements EligibilityChecker.
func (f EligibilityCheckerFunc) Split(
	unedited *document.Node,
	edited *document.Node,
	cfg lockedkeys.Config,
) (docdiff.Split, error) {
	return f(unedited, edited, cfg)
}

// allEligible treats every change as eligible.
var allEligible = EligibilityCheckerFunc(
	func(unedited, edited *document.Node, _ lockedkeys.Config) (docdiff.Split, error) {
		return docdiff.SplitByLockEligibility(unedited, edited, lockedkeys.DefaultConfig())
	},
)

// Capabilities is the resolved set of optional behaviors.
type Capabilities struct {
	// Codec hides and restores locked keys.
	Codec lockedkeys.Codec
	// Eligibility splits changes by lock eligibility.
	Eligibility EligibilityChecker
	// ApprovalEnabled reports whether drafts and approvals are available.
	ApprovalEnabled bool

	enabled map[Feature]bool
}

// Defaults returns the capabilities of a build with no optional feature.
func Defaults() Capabilities {
	return Capabilities{
		Codec:       lockedkeys.NoopCodec{},
		Eligibility: allEligible,
		enabled:     map[Feature]bool{},
	}
}

// Has reports whether the given feature was enabled during resolution.
func (c Capabilities) Has(f Feature) bool {
	return c.enabled[f]
}

// Registration associates a feature with the check that enables it and the
// function that installs it.
type Registration struct {
	// Enabled decides, from the runtime configuration, whether the feature
	// is installed. A nil Enabled always installs it.
	Enabled func(config.RuntimeConfig) bool
	// Install replaces the no-op defaults on caps with real implementations.
	Install func(caps *Capabilities)
}

// Registry is a map of Registrations indexed by Feature.
type Registry map[Feature]Registration

// Register adds a Registration to the Registry.
func (r Registry) Register(f Feature, registration Registration) {
	if f == "" {
		panic("feature must be specified")
	}
	if registration.Install == nil {
		panic("feature registration must specify an install function")
	}
	r[f] = registration
}

// Get returns the Registration for the specified feature. If no such
// registration exists, nil is returned instead.
func (r Registry) Get(f Feature) *Registration {
	if registration, exists := r[f]; exists {
		return &registration
	}
	return nil
}

// Resolve starts from Defaults and installs every registered feature that
// cfg enables. Features are installed in name order.
func (r Registry) Resolve(cfg config.RuntimeConfig) Capabilities {
	caps := Defaults()
	names := make([]string, 0, len(r))
	for f := range r {
		names = append(names, string(f))
	}
	sort.Strings(names)
	for _, name := range names {
		f := Feature(name)
		registration := r[f]
		if registration.Enabled != nil && !registration.Enabled(cfg) {
			continue
		}
		registration.Install(&caps)
		caps.enabled[f] = true
	}
	return caps
}

// builtins is this package's internal Registry.
var builtins = Registry{}

func init() {
	builtins.Register(LockedKeys, Registration{
		Enabled: func(cfg config.RuntimeConfig) bool { return cfg.LockedKeysEnabled },
		Install: func(caps *Capabilities) { caps.Codec = lockedkeys.NewCodec() },
	})
	builtins.Register(LockEligibility, Registration{
		Enabled: func(cfg config.RuntimeConfig) bool { return cfg.LockedKeysEnabled },
		Install: func(caps *Capabilities) {
			caps.Eligibility = EligibilityCheckerFunc(docdiff.SplitByLockEligibility)
		},
	})
	builtins.Register(ConfigApproval, Registration{
		Enabled: func(cfg config.RuntimeConfig) bool { return cfg.ConfigApprovalEnabled },
		Install: func(caps *Capabilities) { caps.ApprovalEnabled = true },
	})
}

// Register adds a Registration to the package's internal Registry.
func Register(f Feature, registration Registration) {
	builtins.Register(f, registration)
}

// Resolve resolves the package's internal Registry against cfg.
func Resolve(cfg config.RuntimeConfig) Capabilities {
	return builtins.Resolve(cfg)
}
