package deploymenttemplate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/devtron-labs/dtconfig/internal/config"
	"github.com/devtron-labs/dtconfig/internal/features"
	"github.com/devtron-labs/dtconfig/internal/guiform"
	xhttp "github.com/devtron-labs/dtconfig/internal/http"
	"github.com/devtron-labs/dtconfig/internal/logging"
	"github.com/devtron-labs/dtconfig/pkg/document"
	"github.com/devtron-labs/dtconfig/pkg/lockedkeys"
)

var (
	// ErrBusy is returned when an operation conflicts with one in progress.
	ErrBusy = errors.New("another operation is in progress")
	// ErrReadOnly is returned when the current view does not allow editing.
	ErrReadOnly = errors.New("deployment template is read-only in the current view")
	// ErrUnsupported is returned when a collaborator an operation needs was
	// not provided.
	ErrUnsupported = errors.New("operation is not supported by this editor")
	// ErrNoFormFields is returned by the GUI form field operations while no
	// field selection is shown.
	ErrNoFormFields = errors.New("no GUI form field selection is shown")
)

const (
	noScopedVariablesMessage = "No valid variable found on this page"
	lockedChangesMessage     = "Changes in locked keys are only allowed via super-admin."
	deploymentMessage        = "Changes will be reflected after next deployment."
)

// Options identify the document an Editor works on and the user working on
// it.
type Options struct {
	AppID int
	// EnvID is zero for the base configuration.
	EnvID           int
	EnvironmentName string
	// ApprovalPolicyConfigured means changes to the document go through
	// drafts and approvals. It is the starting point only: a save refused
	// with 423 Locked refreshes it from the ProtectionService.
	ApprovalPolicyConfigured bool
	IsSuperAdmin             bool
	// HeaderTab is the tab requested for the first load, for instance from
	// a URL. Invalid tabs are ignored.
	HeaderTab string
}

// Editor drives the editing of one deployment template. It performs the
// requests every operation needs and feeds their outcome through the
// Reducer. Requests run without holding the Editor's lock, so a read of the
// state is never blocked by the network.
type Editor struct {
	opts    Options
	svc     Services
	caps    features.Capabilities
	cfg     config.RuntimeConfig
	reducer *Reducer

	// approvalPolicy is whether the document is currently protected.
	approvalPolicy atomic.Bool

	mu    sync.Mutex
	state State
	// requestedTab is the header tab the next load starts on.
	requestedTab string
	// latestDraft is the draft found by the last protection refresh. Drafts
	// found by a load live in the state instead.
	latestDraft *DraftMetadata
	// formFields is the GUI form field selection of a patch override.
	formFields     *guiform.Tree
	resolveGen     uint64
	manifestGen    uint64
	cancelManifest context.CancelFunc
}

// NewEditor returns an Editor for the document described by opts.
func NewEditor(
	opts Options,
	svc Services,
	caps features.Capabilities,
	cfg config.RuntimeConfig,
) *Editor {
	e := &Editor{
		opts:         opts,
		svc:          svc,
		caps:         caps,
		cfg:          cfg,
		reducer:      NewReducer(caps),
		state:        InitialState(opts.IsSuperAdmin),
		requestedTab: opts.HeaderTab,
	}
	e.approvalPolicy.Store(opts.ApprovalPolicyConfigured)
	return e
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Scope returns the scope views are resolved in.
func (e *Editor) Scope() Scope {
	return Scope{
		EnvID:                    e.opts.EnvID,
		ApprovalPolicyConfigured: e.approvalConfigured(),
		IsSuperAdmin:             e.opts.IsSuperAdmin,
		LockEligibility:          e.caps.Has(features.LockEligibility),
	}
}

// Flags resolves the flags of the current view.
func (e *Editor) Flags() ViewFlags {
	return ResolveViewFlags(e.State(), e.Scope())
}

// Dispatch applies a to the state and returns the new state.
func (e *Editor) Dispatch(a Action) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = e.reducer.Reduce(e.state, a)
	return e.state
}

// Notifications returns the notifications raised since the last call and
// clears them.
func (e *Editor) Notifications() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.state.Notifications
	e.state.Notifications = nil
	return n
}

func (e *Editor) notify(variant NotificationVariant, title, description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = e.state.notify(variant, title, description)
}

func (e *Editor) approvalConfigured() bool {
	return e.approvalPolicy.Load() && e.caps.ApprovalEnabled && e.svc.Drafts != nil
}

// refreshProtection runs after the backend refused a change with 423
// Locked, meaning the document became protected while it was being edited.
// The protection is read again, as is the latest draft when the document is
// now protected. Without a ProtectionService, or when it fails, the refusal
// itself marks the document as protected.
func (e *Editor) refreshProtection(ctx context.Context) {
	logger := e.logger(ctx)
	protected := true
	if e.svc.Protections != nil {
		protections, err := e.svc.Protections.GetConfigProtections(ctx, e.opts.AppID)
		if err != nil {
			logger.Debug("config protections unavailable", "error", err.Error())
		} else {
			protected = IsProtected(protections, e.configEnvID())
		}
	}
	e.approvalPolicy.Store(protected)
	logger.Debug("refreshed config protection", "protected", protected)
	if !e.approvalConfigured() {
		return
	}
	draft, err := e.svc.Drafts.GetDraftByResourceName(
		ctx,
		e.opts.AppID,
		e.configEnvID(),
		DeploymentTemplateResourceType,
		ResourceName(e.opts.EnvironmentName),
	)
	if err != nil {
		logger.Debug("draft unavailable", "error", err.Error())
		return
	}
	if !draft.IsActive() {
		draft = nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latestDraft = draft
}

func (e *Editor) logger(ctx context.Context) *logging.Logger {
	return logging.LoggerFromContext(ctx).WithValues("appID", e.opts.AppID, "envID", e.opts.EnvID)
}

func (e *Editor) redactor(cfg lockedkeys.Config) Redactor {
	return Redactor{Codec: e.reducer.Codec(), Paths: cfg.Paths}
}

// configEnvID is the environment id drafts and locked keys are stored
// under.
func (e *Editor) configEnvID() int {
	if e.opts.EnvID == 0 {
		return BaseConfigurationEnvID
	}
	return e.opts.EnvID
}

// Load fetches everything the editor shows and initializes the state from
// it. Nothing is applied until every request has completed.
func (e *Editor) Load(ctx context.Context) error {
	logger := e.logger(ctx)
	e.Dispatch(InitiateInitialDataLoad{})
	data, err := e.fetchInitialData(ctx)
	if err != nil {
		logger.Error(err, "error loading deployment template")
		e.Dispatch(InitialDataError{Err: err})
		return err
	}
	e.Dispatch(data)
	logger.Debug("loaded deployment template", "withDraft", data.Draft != nil)
	return nil
}

// Reload discards all local state and loads again.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.Lock()
	e.requestedTab = ""
	e.latestDraft = nil
	e.formFields = nil
	e.mu.Unlock()
	e.Dispatch(ResetAll{IsSuperAdmin: e.opts.IsSuperAdmin})
	return e.Load(ctx)
}

func (e *Editor) fetchInitialData(ctx context.Context) (InitializeTemplates, error) {
	logger := e.logger(ctx)
	var (
		refs   ChartReferences
		locked = lockedkeys.DefaultConfig()
		draft  *DraftMetadata
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if refs, err = e.svc.Charts.GetChartReferences(gctx, e.opts.AppID, e.opts.EnvID); err != nil {
			return fmt.Errorf("error fetching chart references: %w", err)
		}
		return nil
	})
	// Locked keys and drafts are optional. Failing to fetch them only
	// disables what they serve.
	if e.caps.Has(features.LockedKeys) && e.svc.LockedKeys != nil {
		g.Go(func() error {
			cfg, err := e.svc.LockedKeys.GetLockedKeys(gctx, e.opts.AppID, e.configEnvID())
			if err != nil {
				logger.Debug("locked keys unavailable", "error", err.Error())
				return nil
			}
			locked = cfg
			return nil
		})
	}
	if e.approvalConfigured() {
		g.Go(func() error {
			d, err := e.svc.Drafts.GetDraftByResourceName(
				gctx,
				e.opts.AppID,
				e.configEnvID(),
				DeploymentTemplateResourceType,
				ResourceName(e.opts.EnvironmentName),
			)
			if err != nil {
				logger.Debug("draft unavailable", "error", err.Error())
				return nil
			}
			draft = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return InitializeTemplates{}, err
	}

	details, selected, err := refs.Details()
	if err != nil {
		return InitializeTemplates{}, err
	}
	r := e.redactor(locked)

	var (
		published    *TemplateSnapshot
		base         *TemplateSnapshot
		migratedFrom string
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		published, migratedFrom, err = e.fetchTemplate(gctx, selected, r)
		return err
	})
	if e.opts.EnvID != 0 {
		g.Go(func() error {
			var err error
			base, err = e.fetchBaseTemplate(gctx, details.GlobalChartDetails, r)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return InitializeTemplates{}, err
	}
	if e.opts.EnvID == 0 {
		base = published
	}

	e.mu.Lock()
	requestedTab := ParseHeaderTab(e.opts.EnvID, e.requestedTab)
	e.mu.Unlock()

	data := InitializeTemplates{
		Base:         base,
		Published:    published,
		ChartDetails: details,
		LockedKeys:   locked,
		HeaderTab:    requestedTab,
		MigratedFrom: migratedFrom,
	}
	if draft.IsActive() {
		snapshot, err := NewDraftSnapshot(*draft, published.GUISchema, details, e.opts.EnvID, r)
		if err != nil {
			return InitializeTemplates{}, err
		}
		data.Draft = snapshot
		data.CurrentEditor = NewEditorState(snapshot)
		data.ProtectionTab = ProtectConfigTabEditDraft
		if draft.DraftState == DraftStateAwaitApproval {
			data.ProtectionTab = ProtectConfigTabCompare
		}
		if data.HeaderTab == "" {
			data.HeaderTab = ConfigHeaderTabValues
		}
		return data, nil
	}

	data.CurrentEditor = NewEditorState(published)
	if data.HeaderTab == "" {
		data.HeaderTab = ConfigHeaderTabValues
		if e.opts.EnvID != 0 && !published.IsOverridden {
			data.HeaderTab = ConfigHeaderTabInherited
		}
	}
	return data, nil
}

// fetchTemplate fetches the document being edited as it is stored for the
// given chart.
func (e *Editor) fetchTemplate(
	ctx context.Context,
	chart ChartVersion,
	r Redactor,
) (*TemplateSnapshot, string, error) {
	if e.opts.EnvID == 0 {
		snapshot, err := e.fetchBaseTemplate(ctx, chart, r)
		return snapshot, "", err
	}
	res, err := e.svc.Templates.GetEnvOverride(ctx, e.opts.AppID, e.opts.EnvID, chart.ID)
	if err != nil {
		return nil, "", fmt.Errorf("error fetching environment override: %w", err)
	}
	return NewEnvOverrideSnapshot(res, chart, r)
}

func (e *Editor) fetchBaseTemplate(
	ctx context.Context,
	chart ChartVersion,
	r Redactor,
) (*TemplateSnapshot, error) {
	res, err := e.svc.Templates.GetBaseTemplate(ctx, e.opts.AppID, chart.ID)
	if err != nil {
		return nil, fmt.Errorf("error fetching base deployment template: %w", err)
	}
	return NewBaseSnapshot(res, chart, r)
}

// CompareConfig returns the fields describing each side of the compare
// view.
func (e *Editor) CompareConfig() (current []ConfigField, published []ConfigField) {
	s := e.State()
	return CompareFromEditorConfig(s, ResolveViewFlags(s, e.Scope()), e.opts.EnvID, e.cfg.ApplicationMetricsEnabled)
}

// ChangeChart switches the document to another chart or chart version.
func (e *Editor) ChangeChart(ctx context.Context, chart ChartVersion) error {
	s := e.Dispatch(InitiateChartChange{})
	snapshot, _, err := e.fetchTemplate(ctx, chart, e.redactor(s.LockedKeys))
	if err != nil {
		e.logger(ctx).Error(err, "error changing chart", "chartRefID", chart.ID)
		e.Dispatch(ChartChangeError{})
		e.notify(NotificationError, "", err.Error())
		return err
	}
	e.Dispatch(ChartChangeSuccess{
		SelectedChart: chart,
		Details:       snapshot,
		IsEnvView:     e.opts.EnvID != 0,
	})
	return nil
}

// SetEditorValue replaces the text of the current editor.
func (e *Editor) SetEditorValue(template string) error {
	if e.Flags().DisableCodeEditor {
		return ErrReadOnly
	}
	e.Dispatch(CurrentEditorValueChange{Template: template})
	return nil
}

// SetHideLockedKeys hides or shows the locked keys of the current editor.
func (e *Editor) SetHideLockedKeys(hide bool) error {
	s := e.State()
	if s.CurrentEditor == nil {
		return ErrNotLoaded
	}
	if s.CurrentEditor.ParsingError != "" {
		return ErrParsingError
	}
	e.Dispatch(UpdateHideLockedKeys{HideLockedKeys: hide})
	return nil
}

// ChangeEditMode switches between the GUI form and the YAML editor. The
// GUI form cannot show text that does not parse. Entering the GUI form on an
// override merged with the patch strategy selects the fields the override
// defines.
func (e *Editor) ChangeEditMode(mode EditMode) error {
	s := e.State()
	switch mode {
	case EditModeGUI:
		if s.CurrentEditor != nil && s.CurrentEditor.ParsingError != "" {
			return ErrParsingError
		}
		s = e.Dispatch(ChangeToGUIMode{})
		form, err := newFormFields(s.CurrentEditor)
		e.mu.Lock()
		e.formFields = form
		e.mu.Unlock()
		if err != nil {
			return err
		}
	case EditModeYAML:
		e.mu.Lock()
		e.formFields = nil
		e.mu.Unlock()
		e.Dispatch(ChangeToYAMLMode{})
	default:
		return fmt.Errorf("unknown edit mode %q", mode)
	}
	return nil
}

func newFormFields(cur *EditorState) (*guiform.Tree, error) {
	if cur == nil || !hasPatchStrategy(&cur.TemplateSnapshot) || len(cur.Schema) == 0 {
		return nil, nil
	}
	doc, err := document.Parse(cur.EditorTemplate)
	if err != nil {
		return nil, err
	}
	form, err := guiform.NewTree(cur.Schema, doc)
	if err != nil {
		return nil, fmt.Errorf("error building GUI form fields: %w", err)
	}
	return form, nil
}

// FormFields returns the GUI form field selection, or nil when none is
// shown. The tree must not be modified other than through ToggleFormField.
func (e *Editor) FormFields() *guiform.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.formFields
}

// ToggleFormField checks or unchecks the GUI form field at path.
func (e *Editor) ToggleFormField(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.formFields == nil {
		return ErrNoFormFields
	}
	return e.formFields.UpdateNodeForPath(path)
}

// FormUISchema returns the UI schema of the GUI form with unchecked fields
// hidden.
func (e *Editor) FormUISchema() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.formFields == nil {
		return nil, ErrNoFormFields
	}
	var uiSchema []byte
	if e.state.CurrentEditor != nil && e.state.CurrentEditor.GUISchema != "" {
		uiSchema = []byte(e.state.CurrentEditor.GUISchema)
	}
	return e.formFields.HiddenUISchema(uiSchema)
}

// ChangeHeaderTab selects a header tab. Merged templates are refreshed
// before the dry run tab is shown.
func (e *Editor) ChangeHeaderTab(ctx context.Context, tab ConfigHeaderTab) error {
	if e.State().HeaderTab == tab {
		return nil
	}
	var err error
	if tab == ConfigHeaderTabDryRun {
		err = e.LoadMergedTemplates(ctx)
	}
	e.Dispatch(UpdateConfigHeaderTab{Tab: tab})
	return err
}

// ChangeProtectionTab selects a tab of a protected configuration. Merged
// templates are refreshed when the compare tab is shown.
func (e *Editor) ChangeProtectionTab(ctx context.Context, tab ProtectConfigTab) error {
	if e.State().ProtectionTab == tab {
		return nil
	}
	e.Dispatch(UpdateProtectionViewTab{Tab: tab})
	if tab == ProtectConfigTabCompare {
		return e.LoadMergedTemplates(ctx)
	}
	return nil
}

// LoadMergedTemplates computes the merged templates of every snapshot using
// the patch merge strategy, against a freshly fetched base template. The
// current editor's merged template is refreshed in any case.
func (e *Editor) LoadMergedTemplates(ctx context.Context) error {
	logger := e.logger(ctx)
	s := e.State()
	if s.CurrentEditor == nil {
		return ErrNotLoaded
	}
	current := document.NewMapping()
	if text, err := CurrentTemplateWithLockedKeys(s, e.reducer.Codec()); err == nil {
		if parsed, err := document.Parse(text); err == nil {
			current = parsed
		} else {
			logger.Debug("current template does not parse, merging an empty document")
		}
	}

	required := EditorStatesWithPatchStrategy(s)
	if len(required) == 0 {
		e.Dispatch(LoadMergedTemplate{
			EditorStates:    []EditorStateKey{EditorStateCurrent},
			MergedTemplates: []*document.Node{current},
		})
		return nil
	}
	e.Dispatch(InitiateLoadingMergedTemplate{EditorStates: required, CurrentEditorParsed: current})

	// A base template that cannot be refetched is replaced by the one
	// already loaded.
	base, fetchErr := e.fetchBaseTemplate(ctx, s.ChartDetails.GlobalChartDetails, e.redactor(s.LockedKeys))
	baseValues := document.NewMapping()
	switch {
	case fetchErr == nil:
		baseValues = base.OriginalTemplate
	case s.Base != nil:
		logger.Debug("merging onto previously loaded base template", "error", fetchErr.Error())
		baseValues = s.Base.OriginalTemplate
	}
	merged := make([]*document.Node, 0, len(required))
	for _, key := range required {
		values := current
		if key != EditorStateCurrent {
			parsed, err := document.Parse(s.Snapshot(key).EditorTemplate)
			if err != nil {
				parsed = document.NewMapping()
			}
			values = parsed
		}
		m, err := MergeWithBase(baseValues, values)
		if err != nil {
			logger.Error(err, "error merging template with base", "editorState", key)
			e.Dispatch(MergedTemplateFetchError{Err: err})
			return err
		}
		merged = append(merged, m)
	}
	e.Dispatch(LoadMergedTemplate{EditorStates: required, MergedTemplates: merged, Base: base})
	return nil
}

// ToggleResolveScopedVariables switches between the raw and the resolved
// templates. A resolution finishing after the toggle was used again is
// dropped.
func (e *Editor) ToggleResolveScopedVariables(ctx context.Context) error {
	e.mu.Lock()
	if e.state.ResolveScopedVariables {
		e.resolveGen++
		e.state = e.reducer.Reduce(e.state, UnResolveScopedVariables{})
		e.mu.Unlock()
		return nil
	}
	if e.svc.Variables == nil {
		e.mu.Unlock()
		return ErrUnsupported
	}
	e.resolveGen++
	gen := e.resolveGen
	e.state = e.reducer.Reduce(e.state, InitiateResolveScopedVariables{})
	s := e.state
	e.mu.Unlock()

	resolved, found, err := e.resolveScopedVariables(ctx, s, ResolveViewFlags(s, e.Scope()))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolveGen != gen {
		return nil
	}
	switch {
	case err != nil:
		e.logger(ctx).Error(err, "error resolving scoped variables")
		e.state = e.reducer.Reduce(e.state, UnResolveScopedVariables{})
		e.state = e.state.notify(NotificationError, "", err.Error())
		return err
	case !found:
		e.state = e.reducer.Reduce(e.state, UnResolveScopedVariables{})
		e.state = e.state.notify(NotificationError, "", noScopedVariablesMessage)
		return nil
	}
	e.state = e.reducer.Reduce(e.state, resolved)
	return nil
}

func (e *Editor) resolveScopedVariables(
	ctx context.Context,
	s State,
	f ViewFlags,
) (ResolveScopedVariables, bool, error) {
	if s.CurrentEditor == nil {
		return ResolveScopedVariables{}, false, ErrNotLoaded
	}
	fetchOriginal := f.IsGUISupported && s.CurrentEditor.OriginalTemplateState != nil
	fetchPublished := f.IsPublishedConfigPresent && f.IsCompareView && s.Published != nil

	var editor, original, published ResolveResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		editor, err = e.svc.Variables.Resolve(gctx, ResolveRequest{
			AppID:      e.opts.AppID,
			EnvID:      e.opts.EnvID,
			ChartRefID: s.CurrentEditor.SelectedChartRefID,
			Values:     ResolveEditorPayloadForScopedVariables(s, f, e.reducer.Codec()),
		})
		return err
	})
	if fetchOriginal {
		g.Go(func() error {
			var err error
			original, err = e.svc.Variables.Resolve(gctx, ResolveRequest{
				AppID:      e.opts.AppID,
				EnvID:      e.opts.EnvID,
				ChartRefID: s.CurrentEditor.OriginalTemplateState.SelectedChartRefID,
				Values:     s.CurrentEditor.OriginalTemplateState.EditorTemplate,
			})
			return err
		})
	}
	if fetchPublished {
		g.Go(func() error {
			values := s.Published.EditorTemplate
			if f.ShouldUseMergedTemplate {
				values = s.Published.MergedTemplate
			}
			var err error
			published, err = e.svc.Variables.Resolve(gctx, ResolveRequest{
				AppID:      e.opts.AppID,
				EnvID:      e.opts.EnvID,
				ChartRefID: s.Published.SelectedChartRefID,
				Values:     values,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return ResolveScopedVariables{}, false, fmt.Errorf("error resolving scoped variables: %w", err)
	}
	if !editor.AreVariablesPresent && (!fetchPublished || !published.AreVariablesPresent) {
		return ResolveScopedVariables{}, false, nil
	}
	r := e.redactor(s.LockedKeys)
	resolved := func(res ResolveResponse) ResolvedTemplate {
		return ResolvedTemplate{
			OriginalTemplateString:    res.ResolvedData,
			TemplateWithoutLockedKeys: r.without(res.ResolvedData),
		}
	}
	return ResolveScopedVariables{
		Editor:    resolved(editor),
		Original:  resolved(original),
		Published: resolved(published),
	}, true, nil
}

// TriggerSave starts saving the current editor. Changes touching locked
// keys open the locked diff modal and a protected configuration opens the
// draft modal instead of saving.
func (e *Editor) TriggerSave(ctx context.Context) error {
	s := e.State()
	if err := checkSavable(s); err != nil {
		return err
	}
	f := ResolveViewFlags(s, e.Scope())
	if f.ShouldValidateLockChanges {
		locked, err := e.hasIneligibleChanges(s, false)
		if err != nil {
			return err
		}
		if locked {
			e.Dispatch(LockedChangesDetectedOnSave{})
			return nil
		}
	}
	return e.SaveFromLockedModal(ctx)
}

// SaveFromLockedModal continues a save from the locked diff modal, keeping
// only the eligible changes.
func (e *Editor) SaveFromLockedModal(ctx context.Context) error {
	if e.approvalConfigured() {
		e.Dispatch(ShowProtectedSaveModal{})
		return nil
	}
	return e.SaveTemplate(ctx)
}

// ValidateApprovalState reports whether the pending draft may be approved.
// A draft touching locked keys opens the locked diff modal instead.
func (e *Editor) ValidateApprovalState() (bool, error) {
	s := e.State()
	if !ResolveViewFlags(s, e.Scope()).ShouldValidateLockChanges {
		return true, nil
	}
	locked, err := e.hasIneligibleChanges(s, true)
	if err != nil {
		return false, err
	}
	if locked {
		e.Dispatch(ShowLockedDiffForApproval{})
		return false, nil
	}
	return true, nil
}

func (e *Editor) hasIneligibleChanges(s State, isApprovalView bool) (bool, error) {
	unedited, edited, err := LockedDiffModalDocuments(s, isApprovalView, e.reducer.Codec())
	if err != nil {
		return false, err
	}
	split, err := e.caps.Eligibility.Split(unedited, edited, s.LockedKeys)
	if err != nil {
		return false, fmt.Errorf("error checking locked keys: %w", err)
	}
	return split.HasIneligibleChanges(), nil
}

func checkSavable(s State) error {
	switch {
	case s.CurrentEditor == nil:
		return ErrNotLoaded
	case s.IsSaving || s.IsResolvingVariables || s.IsLoadingChangedChartDetails:
		return ErrBusy
	case s.CurrentEditor.ParsingError != "":
		return ErrParsingError
	}
	return nil
}

func (e *Editor) payloadOptions(skipReadmeAndSchema, isDeleteOverride bool) PayloadOptions {
	return PayloadOptions{
		AppID:               e.opts.AppID,
		EnvID:               e.opts.EnvID,
		ResourceName:        ResourceName(e.opts.EnvironmentName),
		SkipReadmeAndSchema: skipReadmeAndSchema,
		IsDeleteOverride:    isDeleteOverride,
		Codec:               e.reducer.Codec(),
		Eligibility:         e.caps.Eligibility,
	}
}

// SaveTemplate saves the current editor directly, then reloads.
func (e *Editor) SaveTemplate(ctx context.Context) error {
	logger := e.logger(ctx)
	if s := e.State(); s.IsSaving {
		return ErrBusy
	}
	s := e.Dispatch(InitiateSave{})
	f := ResolveViewFlags(s, e.Scope())

	res, err := e.save(ctx, s, f)
	if err != nil {
		logger.Error(err, "error saving deployment template")
		if xhttp.IsLocked(err) {
			e.refreshProtection(ctx)
		}
		e.Dispatch(SaveError{IsProtectionError: xhttp.IsLocked(err)})
		e.notify(NotificationError, "", err.Error())
		return err
	}
	if res.IsLockConfigError && s.LockedDiffModal.ShowLockedTemplateDiffModal {
		e.notify(NotificationError, "", lockedChangesMessage)
	}
	e.Dispatch(FinishSave{IsLockConfigError: res.IsLockConfigError})
	if res.IsLockConfigError {
		return nil
	}
	logger.Info("saved deployment template", "update", f.IsUpdateView)
	if err = e.Reload(ctx); err != nil {
		return err
	}
	e.notify(NotificationSuccess, saveSuccessTitle(e.opts.EnvID != 0, f.IsUpdateView), deploymentMessage)
	return nil
}

func (e *Editor) save(ctx context.Context, s State, f ViewFlags) (SaveResult, error) {
	opts := e.payloadOptions(true, false)
	if e.opts.EnvID == 0 {
		p, err := BuildBasePayload(s, opts)
		if err != nil {
			return SaveResult{}, err
		}
		if f.IsUpdateView {
			return e.svc.Templates.UpdateBaseTemplate(ctx, p)
		}
		return e.svc.Templates.CreateBaseTemplate(ctx, p)
	}
	p, err := BuildEnvOverridePayload(s, opts)
	if err != nil {
		return SaveResult{}, err
	}
	if f.IsUpdateView {
		return e.svc.Templates.UpdateEnvOverride(ctx, e.opts.AppID, p)
	}
	return e.svc.Templates.CreateEnvOverride(ctx, e.opts.AppID, e.opts.EnvID, p)
}

func saveSuccessTitle(isEnv, isUpdate bool) string {
	switch {
	case isEnv && isUpdate:
		return "Updated override"
	case isEnv:
		return "Overridden"
	case isUpdate:
		return "Updated"
	}
	return "Saved"
}

// SaveDraft proposes the current editor as a draft of a protected
// configuration, then reloads.
func (e *Editor) SaveDraft(ctx context.Context, comment string) error {
	if !e.approvalConfigured() {
		return ErrUnsupported
	}
	s := e.State()
	if err := checkSavable(s); err != nil {
		return err
	}
	f := ResolveViewFlags(s, e.Scope())
	data, err := e.draftData(s, false)
	if err != nil {
		return err
	}
	action := DraftActionAdd
	if f.IsUpdateView {
		action = DraftActionUpdate
	}
	return e.submitDraft(ctx, s, action, data, comment)
}

func (e *Editor) draftData(s State, isDeleteOverride bool) (string, error) {
	opts := e.payloadOptions(false, isDeleteOverride)
	var (
		payload any
		err     error
	)
	if e.opts.EnvID == 0 {
		payload, err = BuildBasePayload(s, opts)
	} else {
		payload, err = BuildEnvOverridePayload(s, opts)
	}
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error encoding draft: %w", err)
	}
	return string(data), nil
}

func (e *Editor) submitDraft(
	ctx context.Context,
	s State,
	action DraftAction,
	data string,
	comment string,
) error {
	logger := e.logger(ctx)
	req := DraftRequest{
		AppID:          e.opts.AppID,
		EnvID:          e.configEnvID(),
		Resource:       DeploymentTemplateResourceType,
		ResourceName:   ResourceName(e.opts.EnvironmentName),
		Action:         action,
		Data:           data,
		UserComment:    comment,
		ChangeProposed: true,
	}
	latest := e.refreshedDraft()
	if s.Draft != nil && s.Draft.LatestDraft != nil {
		latest = s.Draft.LatestDraft
	}
	if latest != nil {
		req.DraftID = latest.DraftID
		req.LastDraftVersionID = latest.DraftVersionID
	}

	e.Dispatch(InitiateSave{})
	res, err := e.svc.Drafts.SaveDraft(ctx, req)
	if err != nil {
		logger.Error(err, "error saving draft", "action", action)
		if xhttp.IsLocked(err) {
			e.refreshProtection(ctx)
		}
		e.Dispatch(SaveError{IsProtectionError: xhttp.IsLocked(err)})
		e.notify(NotificationError, "", err.Error())
		return err
	}
	if res.IsLockConfigError {
		e.Dispatch(FinishSave{})
		e.Dispatch(LockChangesDetectedFromDraftAPI{})
		return nil
	}
	e.Dispatch(FinishSave{})
	return e.Reload(ctx)
}

func (e *Editor) refreshedDraft() *DraftMetadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latestDraft
}

// ToggleOverride creates, discards or starts deleting the override of an
// environment, depending on what exists.
func (e *Editor) ToggleOverride() error {
	if e.opts.EnvID == 0 {
		return errors.New("the base configuration cannot be overridden")
	}
	s := e.State()
	if s.CurrentEditor == nil || s.CurrentEditor.OriginalTemplateState == nil {
		return ErrNotLoaded
	}
	switch {
	case s.CurrentEditor.OriginalTemplateState.IsOverridden:
		e.Dispatch(ShowDeleteOverrideDialog{IsApprovalPolicyConfigured: e.approvalConfigured()})
	case s.CurrentEditor.IsOverridden:
		e.Dispatch(DeleteLocalOverride{})
	default:
		e.Dispatch(OverrideTemplate{})
	}
	return nil
}

// DeleteOverride reverts an environment to the base configuration. For a
// protected configuration this proposes a deletion draft.
func (e *Editor) DeleteOverride(ctx context.Context, comment string) error {
	if e.opts.EnvID == 0 {
		return errors.New("the base configuration has no override to delete")
	}
	s := e.State()
	if s.CurrentEditor == nil {
		return ErrNotLoaded
	}
	logger := e.logger(ctx)

	if e.approvalConfigured() {
		e.Dispatch(CloseDeleteDraftOverrideDialog{})
		data, err := e.draftData(s, true)
		if err != nil {
			return err
		}
		return e.submitDraft(ctx, s, DraftActionDelete, data, comment)
	}

	e.Dispatch(CloseOverrideDialog{})
	p, err := BuildEnvOverridePayload(s, e.payloadOptions(true, true))
	if err != nil {
		return err
	}
	e.Dispatch(InitiateSave{})
	if _, err = e.svc.Templates.UpdateEnvOverride(ctx, e.opts.AppID, p); err != nil {
		logger.Error(err, "error deleting override")
		e.Dispatch(FinishSave{})
		if xhttp.IsLocked(err) {
			e.refreshProtection(ctx)
			e.Dispatch(DeleteOverrideConcurrentProtectionError{})
			return err
		}
		e.notify(NotificationError, "", err.Error())
		return err
	}
	e.Dispatch(FinishSave{})
	if err = e.Reload(ctx); err != nil {
		return err
	}
	e.notify(NotificationSuccess, "", "Restored to global")
	return nil
}

// RenderManifest renders the manifests of the dry run view. Starting a new
// render cancels the one in flight.
func (e *Editor) RenderManifest(ctx context.Context) (string, error) {
	if e.svc.Manifests == nil {
		return "", ErrUnsupported
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancelManifest != nil {
		e.cancelManifest()
	}
	e.manifestGen++
	gen := e.manifestGen
	e.cancelManifest = cancel
	s := e.state
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.manifestGen == gen {
			e.cancelManifest = nil
		}
	}()

	f := ResolveViewFlags(s, e.Scope())
	snapshot := s.Snapshot(ResolveCurrentEditorState(s, f))
	if snapshot == nil {
		return "", nil
	}
	manifest, err := e.svc.Manifests.RenderManifest(ctx, ManifestRequest{
		AppID:        e.opts.AppID,
		EnvID:        e.opts.EnvID,
		ChartRefID:   snapshot.SelectedChartRefID,
		Values:       ResolveRawEditorValueForDryRun(s, f, e.reducer.Codec()),
		ResourceName: ResourceName(e.opts.EnvironmentName),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("error rendering manifest: %w", err)
	}
	return manifest, nil
}
