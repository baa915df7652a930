package deploymenttemplate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	baseDeploymentTemplateResourceName = "BaseDeploymentTemplate"
	envOverrideResourceNameSuffix      = "DeploymentTemplateOverride"
)

// ResourceName returns the name the draft service knows a document by. An
// empty environment name denotes the base template.
func ResourceName(environmentName string) string {
	if environmentName == "" {
		return baseDeploymentTemplateResourceName
	}
	return fmt.Sprintf("%s-%s", environmentName, envOverrideResourceNameSuffix)
}

// ParseHeaderTab validates a header tab coming from outside, such as a URL
// query. Unknown tabs, and tabs that do not exist for the kind of document,
// yield "".
func ParseHeaderTab(envID int, raw string) ConfigHeaderTab {
	switch tab := ConfigHeaderTab(raw); tab {
	case ConfigHeaderTabValues, ConfigHeaderTabDryRun:
		return tab
	case ConfigHeaderTabInherited:
		if envID != 0 {
			return tab
		}
	}
	return ""
}

var chartDocumentationSegments = map[string]string{
	"Deployment":         "deployment",
	"Rollout Deployment": "reference",
	"Job & CronJob":      "cronjob",
	"StatefulSet":        "statefulset",
}

// EditorSchemaURI returns the URI of the values schema an editor can
// associate with a chart, or "" for charts without one.
func EditorSchemaURI(chartName, version string) string {
	segment, ok := chartDocumentationSegments[chartName]
	if !ok || version == "" {
		return ""
	}
	return fmt.Sprintf(
		"https://github.com/devtron-labs/devtron/tree/main/scripts/devtron-reference-helm-charts/%s-chart_%s/schema.json",
		segment,
		strings.ReplaceAll(version, ".", "-"),
	)
}

// SortCharts returns a copy of charts ordered by name, then from the newest
// version to the oldest. Versions that are not semantic versions sort last,
// in reverse lexical order.
func SortCharts(charts []ChartVersion) []ChartVersion {
	sorted := make([]ChartVersion, len(charts))
	copy(sorted, charts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return versionNewer(sorted[i].Version, sorted[j].Version)
	})
	return sorted
}

func versionNewer(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if va.Equal(vb) {
			return va.Original() > vb.Original()
		}
		return va.GreaterThan(vb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a > b
	}
}

// LatestChartVersions returns the newest version of every chart, ordered by
// chart name.
func LatestChartVersions(charts []ChartVersion) []ChartVersion {
	var latest []ChartVersion
	for _, chart := range SortCharts(charts) {
		if len(latest) > 0 && latest[len(latest)-1].Name == chart.Name {
			continue
		}
		latest = append(latest, chart)
	}
	return latest
}
