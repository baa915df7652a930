package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/patrickmn/go-cache"

	"github.com/devtron-labs/dtconfig/internal/deploymenttemplate"
	xhttp "github.com/devtron-labs/dtconfig/internal/http"
	"github.com/devtron-labs/dtconfig/internal/logging"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

const (
	chartRefsPath      = "chartref/autocomplete"
	templatePath       = "app/template"
	templateUpdatePath = "app/template/update"
	envOverridePath    = "app/env"
	draftPath          = "draft"
	draftVersionPath   = "draft/version"
	latestDraftPath    = "draft/latest"
	protectPath        = "protect"
	lockConfigPath     = "global/lock-config"
	resolvePath        = "global/variables/resolve"
	manifestPath       = "app/deployment/template/data"
)

var (
	_ deploymenttemplate.ChartService      = (*Client)(nil)
	_ deploymenttemplate.TemplateService   = (*Client)(nil)
	_ deploymenttemplate.DraftService      = (*Client)(nil)
	_ deploymenttemplate.ProtectionService = (*Client)(nil)
	_ deploymenttemplate.LockedKeysService = (*Client)(nil)
	_ deploymenttemplate.VariableResolver  = (*Client)(nil)
	_ deploymenttemplate.ManifestService   = (*Client)(nil)
)

// Services returns c as every service an editor uses.
func (c *Client) Services() deploymenttemplate.Services {
	return deploymenttemplate.Services{
		Charts:      c,
		Templates:   c,
		Drafts:      c,
		Protections: c,
		LockedKeys:  c,
		Variables:   c,
		Manifests:   c,
	}
}

// GetChartReferences implements deploymenttemplate.ChartService. An envID of
// zero lists the charts of the base configuration.
func (c *Client) GetChartReferences(
	ctx context.Context,
	appID int,
	envID int,
) (deploymenttemplate.ChartReferences, error) {
	path := fmt.Sprintf("%s/%d", chartRefsPath, appID)
	if envID > 0 {
		path = fmt.Sprintf("%s/%d", path, envID)
	}
	var refs deploymenttemplate.ChartReferences
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &refs); err != nil {
		return refs, fmt.Errorf("error getting chart references: %w", err)
	}
	return refs, nil
}

// GetBaseTemplate implements deploymenttemplate.TemplateService.
func (c *Client) GetBaseTemplate(
	ctx context.Context,
	appID int,
	chartRefID int,
) (deploymenttemplate.BaseTemplateResponse, error) {
	var res deploymenttemplate.BaseTemplateResponse
	path := fmt.Sprintf("%s/%d/%d", templatePath, appID, chartRefID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return res, fmt.Errorf("error getting base template: %w", err)
	}
	return res, nil
}

// GetEnvOverride implements deploymenttemplate.TemplateService.
func (c *Client) GetEnvOverride(
	ctx context.Context,
	appID int,
	envID int,
	chartRefID int,
) (deploymenttemplate.EnvOverrideResponse, error) {
	var res deploymenttemplate.EnvOverrideResponse
	path := fmt.Sprintf("%s/%d/%d/%d", envOverridePath, appID, envID, chartRefID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return res, fmt.Errorf("error getting environment override: %w", err)
	}
	return res, nil
}

// CreateBaseTemplate implements deploymenttemplate.TemplateService.
func (c *Client) CreateBaseTemplate(
	ctx context.Context,
	payload deploymenttemplate.BaseTemplatePayload,
) (deploymenttemplate.SaveResult, error) {
	return c.save(ctx, http.MethodPost, templatePath, payload)
}

// UpdateBaseTemplate implements deploymenttemplate.TemplateService.
func (c *Client) UpdateBaseTemplate(
	ctx context.Context,
	payload deploymenttemplate.BaseTemplatePayload,
) (deploymenttemplate.SaveResult, error) {
	return c.save(ctx, http.MethodPost, templateUpdatePath, payload)
}

// CreateEnvOverride implements deploymenttemplate.TemplateService.
func (c *Client) CreateEnvOverride(
	ctx context.Context,
	appID int,
	envID int,
	payload deploymenttemplate.EnvOverridePayload,
) (deploymenttemplate.SaveResult, error) {
	path := fmt.Sprintf("%s/%d/%d", envOverridePath, appID, envID)
	return c.save(ctx, http.MethodPost, path, payload)
}

// UpdateEnvOverride implements deploymenttemplate.TemplateService.
func (c *Client) UpdateEnvOverride(
	ctx context.Context,
	appID int,
	payload deploymenttemplate.EnvOverridePayload,
) (deploymenttemplate.SaveResult, error) {
	path := fmt.Sprintf("%s/%d", envOverridePath, appID)
	return c.save(ctx, http.MethodPut, path, payload)
}

func (c *Client) save(
	ctx context.Context,
	method string,
	path string,
	payload any,
) (deploymenttemplate.SaveResult, error) {
	var res deploymenttemplate.SaveResult
	if err := c.do(ctx, method, path, nil, payload, &res); err != nil {
		return res, fmt.Errorf("error saving deployment template: %w", err)
	}
	return res, nil
}

// GetDraftByResourceName implements deploymenttemplate.DraftService.
func (c *Client) GetDraftByResourceName(
	ctx context.Context,
	appID int,
	envID int,
	resourceType int,
	resourceName string,
) (*deploymenttemplate.DraftMetadata, error) {
	query := url.Values{}
	query.Set("appId", strconv.Itoa(appID))
	query.Set("envId", strconv.Itoa(envID))
	query.Set("resourceType", strconv.Itoa(resourceType))
	query.Set("resourceName", resourceName)
	var draft *deploymenttemplate.DraftMetadata
	if err := c.do(ctx, http.MethodGet, latestDraftPath, query, nil, &draft); err != nil {
		if xhttp.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting draft %q: %w", resourceName, err)
	}
	if draft == nil || draft.DraftID == 0 {
		return nil, nil
	}
	return draft, nil
}

// SaveDraft implements deploymenttemplate.DraftService. Requests naming a
// draft add a version to it, the others create one.
func (c *Client) SaveDraft(
	ctx context.Context,
	req deploymenttemplate.DraftRequest,
) (deploymenttemplate.SaveResult, error) {
	path := draftPath
	if req.DraftID != 0 {
		path = draftVersionPath
	}
	var res deploymenttemplate.SaveResult
	if err := c.do(ctx, http.MethodPost, path, nil, req, &res); err != nil {
		return res, fmt.Errorf("error saving draft of %q: %w", req.ResourceName, err)
	}
	return res, nil
}

// GetConfigProtections implements deploymenttemplate.ProtectionService.
func (c *Client) GetConfigProtections(
	ctx context.Context,
	appID int,
) ([]deploymenttemplate.ConfigProtection, error) {
	query := url.Values{}
	query.Set("appId", strconv.Itoa(appID))
	var protections []deploymenttemplate.ConfigProtection
	if err := c.do(ctx, http.MethodGet, protectPath, query, nil, &protections); err != nil {
		return nil, fmt.Errorf("error getting config protections of app %d: %w", appID, err)
	}
	return protections, nil
}

// GetLockedKeys implements deploymenttemplate.LockedKeysService.
func (c *Client) GetLockedKeys(ctx context.Context, appID, envID int) (lockedkeys.Config, error) {
	query := url.Values{}
	query.Set("appId", strconv.Itoa(appID))
	if envID != 0 {
		query.Set("envId", strconv.Itoa(envID))
	}
	var cfg lockedkeys.Config
	if err := c.do(ctx, http.MethodGet, lockConfigPath, query, nil, &cfg); err != nil {
		return cfg, fmt.Errorf("error getting locked keys: %w", err)
	}
	return cfg, nil
}

// Resolve implements deploymenttemplate.VariableResolver. Identical
// requests are answered from a cache while it is enabled.
func (c *Client) Resolve(
	ctx context.Context,
	req deploymenttemplate.ResolveRequest,
) (deploymenttemplate.ResolveResponse, error) {
	var key string
	if c.variables != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return deploymenttemplate.ResolveResponse{}, fmt.Errorf("error encoding resolve request: %w", err)
		}
		key = string(data)
		if cached, ok := c.variables.Get(key); ok {
			logging.LoggerFromContext(ctx).Trace("scoped variables resolved from cache")
			return cached.(deploymenttemplate.ResolveResponse), nil // nolint: forcetypeassert
		}
	}
	var res deploymenttemplate.ResolveResponse
	if err := c.do(ctx, http.MethodPost, resolvePath, nil, req, &res); err != nil {
		return res, fmt.Errorf("error resolving scoped variables: %w", err)
	}
	if c.variables != nil {
		c.variables.Set(key, res, cache.DefaultExpiration)
	}
	return res, nil
}

type manifestResponse struct {
	Data string `json:"data"`
}

// RenderManifest implements deploymenttemplate.ManifestService.
func (c *Client) RenderManifest(ctx context.Context, req deploymenttemplate.ManifestRequest) (string, error) {
	var res manifestResponse
	if err := c.do(ctx, http.MethodPost, manifestPath, nil, req, &res); err != nil {
		return "", fmt.Errorf("error rendering manifest: %w", err)
	}
	return res.Data, nil
}
