package client_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novodl/novodl/internal/client"
	"github.com/novodl/novodl/internal/client/notify"
	"github.com/novodl/novodl/internal/model"
)

type fakeSettingsClient struct {
	settings   model.Settings
	systemInfo model.SystemInfo

	getErr   error
	saveRes  *client.ActionResult
	saveErr  error
	resetErr error

	dirResult model.ValidationResult
	lndResult model.ValidationResult

	mu         sync.Mutex
	saved      []model.Settings
	resetCalls int
	dirCalls   []string
	lndCalls   []string
}

func (f *fakeSettingsClient) GetSettings(ctx context.Context) (model.Settings, error) {
	return f.settings, f.getErr
}

func (f *fakeSettingsClient) SaveSettings(ctx context.Context, s model.Settings) (*client.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, s)
	if f.saveRes != nil {
		return f.saveRes, nil
	}
	return &client.ActionResult{Success: true, Message: "settings saved"}, nil
}

func (f *fakeSettingsClient) ResetSettings(ctx context.Context) (*client.ActionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	f.resetCalls++
	return &client.ActionResult{Success: true}, nil
}

func (f *fakeSettingsClient) GetSystemInfo(ctx context.Context) (model.SystemInfo, error) {
	return f.systemInfo, nil
}

func (f *fakeSettingsClient) ValidateLndPath(ctx context.Context, path string) (model.ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lndCalls = append(f.lndCalls, path)
	return f.lndResult, nil
}

func (f *fakeSettingsClient) ValidateDownloadDir(ctx context.Context, path string) (model.ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirCalls = append(f.dirCalls, path)
	return f.dirResult, nil
}

type recordingSettingsView struct {
	settings    []model.Settings
	systemInfos []model.SystemInfo
	validations map[string]model.ValidationResult
}

func newRecordingSettingsView() *recordingSettingsView {
	return &recordingSettingsView{validations: map[string]model.ValidationResult{}}
}

func (v *recordingSettingsView) RenderSettings(s model.Settings) { v.settings = append(v.settings, s) }
func (v *recordingSettingsView) RenderSystemInfo(i model.SystemInfo) {
	v.systemInfos = append(v.systemInfos, i)
}
func (v *recordingSettingsView) RenderValidation(field string, r model.ValidationResult) {
	v.validations[field] = r
}

type staticConfirmer bool

func (c staticConfirmer) Confirm(message string) bool { return bool(c) }

func validSettings() model.Settings {
	return model.Settings{
		LndCmdPath:         "/opt/lnd/lnd",
		DefaultDownloadDir: "/data/downloads",
		MaxConcurrentTasks: 3,
		TaskTimeoutSeconds: 3600,
		AutoValidate:       true,
		GenerateReport:     true,
		FirstRun:           true,
	}
}

func newSettingsManager(t *testing.T, c *fakeSettingsClient, confirm bool) (*client.SettingsManager, *recordingSettingsView, *notify.Recorder) {
	view := newRecordingSettingsView()
	rec := notify.NewRecorder()

	m, err := client.NewSettingsManager(client.SettingsManagerConfig{
		Client:    c,
		View:      view,
		Notifier:  rec,
		Confirmer: staticConfirmer(confirm),
	})
	require.NoError(t, err)
	return m, view, rec
}

func TestSettingsManagerShow(t *testing.T) {
	fc := &fakeSettingsClient{
		settings:   validSettings(),
		systemInfo: model.SystemInfo{Platform: "linux"},
	}
	m, view, rec := newSettingsManager(t, fc, true)

	require.NoError(t, m.Show(context.Background()))

	assert.Equal(t, client.DialogOpen, m.State())
	assert.Equal(t, validSettings(), m.Form())
	require.Len(t, view.settings, 1)
	require.Len(t, view.systemInfos, 1)
	assert.Equal(t, "linux", view.systemInfos[0].Platform)
	assert.Empty(t, rec.Notifications())
}

func TestSettingsManagerShowLoadFailure(t *testing.T) {
	fc := &fakeSettingsClient{getErr: assert.AnError}
	m, _, rec := newSettingsManager(t, fc, true)

	err := m.Show(context.Background())

	require.Error(t, err)
	assert.Equal(t, client.DialogClosed, m.State())
	require.Len(t, rec.Notifications(), 1)
	assert.Equal(t, notify.SeverityDanger, rec.Notifications()[0].Severity)
}

func TestSettingsManagerSaveEmptyPathSkipsNetwork(t *testing.T) {
	fc := &fakeSettingsClient{settings: validSettings()}
	m, _, rec := newSettingsManager(t, fc, true)

	form := validSettings()
	form.LndCmdPath = "   "
	m.SetForm(form)

	require.NoError(t, m.Save(context.Background()))

	assert.Empty(t, fc.saved)
	ns := rec.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, notify.SeverityWarning, ns[0].Severity)
}

func TestSettingsManagerSaveSuccess(t *testing.T) {
	fc := &fakeSettingsClient{settings: validSettings(), systemInfo: model.SystemInfo{}}
	m, _, rec := newSettingsManager(t, fc, true)

	require.NoError(t, m.Show(context.Background()))
	rec.Reset()

	require.NoError(t, m.Save(context.Background()))

	assert.Equal(t, client.DialogClosed, m.State())

	// The payload carries the loaded values with first_run forced off.
	require.Len(t, fc.saved, 1)
	want := validSettings()
	want.FirstRun = false
	assert.Equal(t, want, fc.saved[0])

	ns := rec.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, notify.SeveritySuccess, ns[0].Severity)
}

func TestSettingsManagerSaveServerFailure(t *testing.T) {
	fc := &fakeSettingsClient{
		settings: validSettings(),
		saveRes:  &client.ActionResult{Success: false, Message: "disk full"},
	}
	m, _, rec := newSettingsManager(t, fc, true)

	require.NoError(t, m.Show(context.Background()))
	rec.Reset()

	require.NoError(t, m.Save(context.Background()))

	assert.Equal(t, client.DialogOpen, m.State())
	ns := rec.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, notify.SeverityDanger, ns[0].Severity)
	assert.Equal(t, "disk full", ns[0].Message)
}

func TestSettingsManagerSaveTransportFailure(t *testing.T) {
	fc := &fakeSettingsClient{
		settings: validSettings(),
		saveErr:  &client.APIError{StatusCode: 500, Message: "boom"},
	}
	m, _, rec := newSettingsManager(t, fc, true)

	require.NoError(t, m.Show(context.Background()))
	rec.Reset()

	err := m.Save(context.Background())

	require.Error(t, err)
	assert.Equal(t, client.DialogOpen, m.State())
	ns := rec.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, "boom", ns[0].Message)
}

func TestSettingsManagerResetDeclined(t *testing.T) {
	fc := &fakeSettingsClient{settings: validSettings()}
	m, _, rec := newSettingsManager(t, fc, false)

	require.NoError(t, m.Reset(context.Background()))

	assert.Zero(t, fc.resetCalls)
	assert.Empty(t, rec.Notifications())
}

func TestSettingsManagerResetConfirmed(t *testing.T) {
	fc := &fakeSettingsClient{settings: validSettings()}
	m, view, rec := newSettingsManager(t, fc, true)

	require.NoError(t, m.Reset(context.Background()))

	assert.Equal(t, 1, fc.resetCalls)
	assert.Equal(t, validSettings(), m.Form())
	require.Len(t, view.settings, 1)
	ns := rec.Notifications()
	require.Len(t, ns, 1)
	assert.Equal(t, notify.SeveritySuccess, ns[0].Severity)
}

func TestSettingsManagerValidateLndPathEmptyIsLocal(t *testing.T) {
	fc := &fakeSettingsClient{}
	m, view, _ := newSettingsManager(t, fc, true)

	m.SetForm(model.Settings{LndCmdPath: "  "})

	require.NoError(t, m.ValidateLndPath(context.Background()))

	assert.Empty(t, fc.lndCalls)
	got := view.validations["lnd_cmd_path"]
	assert.False(t, got.Valid)
	assert.Contains(t, got.Message, "please enter")
}

func TestSettingsManagerValidateDownloadDirAppendsFreeSpace(t *testing.T) {
	fc := &fakeSettingsClient{
		dirResult: model.ValidationResult{
			Valid:          true,
			Message:        "download directory is valid",
			SpaceAvailable: 1073741824,
		},
	}
	m, view, _ := newSettingsManager(t, fc, true)

	m.SetForm(model.Settings{DefaultDownloadDir: "/data"})

	require.NoError(t, m.ValidateDownloadDir(context.Background()))

	assert.Equal(t, []string{"/data"}, fc.dirCalls)
	got := view.validations["default_download_dir"]
	assert.True(t, got.Valid)
	assert.Contains(t, got.Message, "1.0 GB")
}

func TestSettingsManagerValidateDownloadDirInvalidKeepsMessage(t *testing.T) {
	fc := &fakeSettingsClient{
		dirResult: model.ValidationResult{Message: "directory is not writable"},
	}
	m, view, _ := newSettingsManager(t, fc, true)

	m.SetForm(model.Settings{DefaultDownloadDir: "/data"})

	require.NoError(t, m.ValidateDownloadDir(context.Background()))

	got := view.validations["default_download_dir"]
	assert.False(t, got.Valid)
	assert.Equal(t, "directory is not writable", got.Message)
}
