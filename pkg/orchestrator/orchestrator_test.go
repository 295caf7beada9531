package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/download"
	"github.com/glorpus-work/aipfetch/pkg/hooks"
	"github.com/glorpus-work/aipfetch/pkg/manifest"
	ocmocks "github.com/glorpus-work/aipfetch/pkg/orchestrator/mocks"
)

func entries(ids ...string) []manifest.Entry {
	out := make([]manifest.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, manifest.Entry{UUID: id, CurrentPath: "/aips/" + id + ".7z"})
	}
	return out
}

func result(id string, action download.Action, err error) download.Result {
	return download.Result{ID: id, Path: "/dl/" + id + ".7z", Action: action, Err: err}
}

func TestRun_FailureDoesNotStopBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := ocmocks.NewMockReconciler(ctrl)
	netErr := errors.New("connection refused")
	gomock.InOrder(
		rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(result("a", download.ActionFresh, nil)),
		rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(result("b", download.ActionFailed, netErr)),
		rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(result("c", download.ActionSkip, nil)),
	)

	var buf bytes.Buffer
	var phases []Phase
	orch := &Orchestrator{
		Reconciler: rec,
		Logger:     logger.NewWithWriter(&buf, "info", logger.FormatText),
		Hooks:      Hooks{OnEvent: func(e Event) { phases = append(phases, e.Phase) }},
	}

	summary, err := orch.Run(context.Background(), entries("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.False(t, summary.OK())
	require.Len(t, summary.Results, 3)
	assert.ErrorIs(t, summary.Results[1].Err, netErr)

	assert.Equal(t, []Phase{
		PhaseProcessing, PhaseDownloaded,
		PhaseProcessing, PhaseFailed,
		PhaseProcessing, PhaseSkipped,
		PhaseDone,
	}, phases)

	out := buf.String()
	assert.Contains(t, out, "Processing AIP 1/3")
	assert.Contains(t, out, "Processing AIP 2/3")
	assert.Contains(t, out, "Processing AIP 3/3")
	assert.Contains(t, out, "Failed to process AIP")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "All AIPs processed")
}

func TestRun_PreservesOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var seen []string
	rec := ocmocks.NewMockReconciler(ctrl)
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, e manifest.Entry) download.Result {
			seen = append(seen, e.UUID)
			return result(e.UUID, download.ActionFresh, nil)
		}).Times(4)

	orch := &Orchestrator{Reconciler: rec}
	summary, err := orch.Run(context.Background(), entries("d", "a", "c", "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "c", "a"}, seen)
	assert.True(t, summary.OK())
}

func TestRun_CancelStopsBeforeNextItem(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := ocmocks.NewMockReconciler(ctrl)
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, manifest.Entry) download.Result {
			cancel()
			return result("a", download.ActionFresh, nil)
		}).Times(1)

	orch := &Orchestrator{Reconciler: rec}
	summary, err := orch.Run(ctx, entries("a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, summary.Canceled)
	assert.Len(t, summary.Results, 1)
	assert.False(t, summary.OK())
}

func TestRun_PostDownloadHook(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := ocmocks.NewMockReconciler(ctrl)
	scripts := ocmocks.NewMockHookRunner(ctrl)
	hookErr := errors.New("rejected")

	ok := result("a", download.ActionFresh, nil)
	ok.Size = 42
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(ok)
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(result("b", download.ActionSkip, nil))
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(result("c", download.ActionFailed, errors.New("boom")))

	scripts.EXPECT().Execute(gomock.Any(), hooks.PostDownload, hooks.HookContext{
		UUID: "a", Path: "/dl/a.7z", Size: 42, Action: "fresh",
	}).Return(nil)
	scripts.EXPECT().Execute(gomock.Any(), hooks.PostDownload, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ hooks.HookType, hc hooks.HookContext) error {
			assert.Equal(t, "b", hc.UUID)
			return hookErr
		})
	scripts.EXPECT().Execute(gomock.Any(), hooks.PostBatch, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ hooks.HookType, hc hooks.HookContext) error {
			assert.Equal(t, 3, hc.Vars["total"])
			assert.Equal(t, 2, hc.Vars["failed"])
			return nil
		})

	orch := &Orchestrator{Reconciler: rec, Scripts: scripts}
	summary, err := orch.Run(context.Background(), entries("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Failed)
	assert.ErrorIs(t, summary.Results[1].Err, hookErr)
	assert.Equal(t, download.ActionFailed, summary.Results[1].Action)
}

func TestRun_DryRunSkipsHooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := ocmocks.NewMockReconciler(ctrl)
	scripts := ocmocks.NewMockHookRunner(ctrl)

	planned := result("a", download.ActionFresh, nil)
	planned.DryRun = true
	rec.EXPECT().Reconcile(gomock.Any(), gomock.Any()).Return(planned)
	scripts.EXPECT().Execute(gomock.Any(), hooks.PostDownload, gomock.Any()).Times(0)
	scripts.EXPECT().Execute(gomock.Any(), hooks.PostBatch, gomock.Any()).Return(nil)

	orch := &Orchestrator{Reconciler: rec, Scripts: scripts}
	summary, err := orch.Run(context.Background(), entries("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRun_PostBatchHookError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scripts := ocmocks.NewMockHookRunner(ctrl)
	batchErr := errors.New("batch rejected")
	scripts.EXPECT().Execute(gomock.Any(), hooks.PostBatch, gomock.Any()).Return(batchErr)

	var last Event
	orch := &Orchestrator{
		Reconciler: ocmocks.NewMockReconciler(ctrl),
		Scripts:    scripts,
		Hooks:      Hooks{OnEvent: func(e Event) { last = e }},
	}
	_, err := orch.Run(context.Background(), nil)
	assert.ErrorIs(t, err, batchErr)
	assert.Equal(t, PhaseDone, last.Phase)
	assert.ErrorIs(t, last.Err, batchErr)
}

func TestRun_NoReconciler(t *testing.T) {
	orch := &Orchestrator{}
	_, err := orch.Run(context.Background(), entries("a"))
	assert.Error(t, err)
}

func TestRun_EmptyBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var buf bytes.Buffer
	orch := &Orchestrator{
		Reconciler: ocmocks.NewMockReconciler(ctrl),
		Logger:     logger.NewWithWriter(&buf, "info", logger.FormatText),
	}
	summary, err := orch.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.True(t, summary.OK())
	assert.Contains(t, buf.String(), "All AIPs processed")
}
