package hub

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/bus"
	"github.com/dgnsrekt/tv_tracker/internal/msg"
	"github.com/dgnsrekt/tv_tracker/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()

	logs, err := storage.NewLogStore(filepath.Join(dir, "activity.json"))
	require.NoError(t, err)
	reports, err := storage.NewReportStore(filepath.Join(dir, "reports.json"))
	require.NoError(t, err)
	memory, err := storage.NewMemoryFile(filepath.Join(dir, "memory.json"))
	require.NoError(t, err)
	shots, err := storage.NewShotStore(filepath.Join(dir, "screenshots"))
	require.NoError(t, err)

	return NewService(logs, reports, memory, shots, bus.NewBroker(), nil, nil)
}

func testEntry(symbol string, kind activity.Kind) *activity.Event {
	return &activity.Event{
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Kind:      kind,
		Symbol:    symbol,
		Price:     "100,00",
	}
}

func TestDispatchLogActivityStoresAndPublishes(t *testing.T) {
	svc := newTestService(t)
	id, sub := svc.Broker().Subscribe()
	defer svc.Broker().Unsubscribe(id)

	svc.dispatch(msg.Envelope{
		Type:  msg.TypeLogActivity,
		Entry: testEntry("THYAO", activity.KindSessionStarted),
	})

	entries, err := svc.ListLogs(context.Background(), "", "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "THYAO", entries[0].Symbol)

	select {
	case ev := <-sub:
		require.Equal(t, bus.KindEntry, ev.Kind)
		require.Contains(t, ev.Payload, "THYAO")
	case <-time.After(time.Second):
		t.Fatal("no bus event published")
	}
}

func TestDispatchSessionReportStoresAndPublishes(t *testing.T) {
	svc := newTestService(t)
	id, sub := svc.Broker().Subscribe()
	defer svc.Broker().Unsubscribe(id)

	report := activity.SessionReport{ID: "r1", Symbol: "GARAN", DrawingCount: 2}
	svc.dispatch(msg.Envelope{Type: msg.TypeSessionReport, Report: &report})

	got, err := svc.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "GARAN", got.Symbol)

	select {
	case ev := <-sub:
		require.Equal(t, bus.KindReport, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no bus event published")
	}
}

func TestDispatchScreenshotSaves(t *testing.T) {
	svc := newTestService(t)

	svc.dispatch(msg.Envelope{
		Type: msg.TypeSaveScreenshot,
		Screenshot: &msg.Screenshot{
			Symbol:  "THYAO",
			Tool:    "Trend Line",
			Price:   "312,50",
			TakenAt: time.Now().UTC(),
			Data:    []byte("not-really-a-png"),
		},
	})

	metas, err := svc.ListScreenshots(context.Background(), "THYAO")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "Trend Line", metas[0].Tool)

	data, format, err := svc.ReadScreenshot(context.Background(), metas[0].ID)
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, []byte("not-really-a-png"), data)
}

func TestDispatchNilPayloadsIgnored(t *testing.T) {
	svc := newTestService(t)

	svc.dispatch(msg.Envelope{Type: msg.TypeLogActivity})
	svc.dispatch(msg.Envelope{Type: msg.TypeSessionReport})
	svc.dispatch(msg.Envelope{Type: msg.TypeSaveScreenshot})
	svc.dispatch(msg.Envelope{Type: "BOGUS"})

	entries, err := svc.ListLogs(context.Background(), "", "", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListLogsRejectsUnknownKind(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ListLogs(context.Background(), "", "charting_intensifies", 0)
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, CodeValidation, coded.Code)
}

func TestListLogsAcceptsWireAndLabelKinds(t *testing.T) {
	svc := newTestService(t)
	svc.dispatch(msg.Envelope{
		Type:  msg.TypeLogActivity,
		Entry: testEntry("THYAO", activity.KindDrawingCreated),
	})

	for _, kind := range []string{"drawing_created", "Drawing Created"} {
		entries, err := svc.ListLogs(context.Background(), "", kind, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1, "kind %q", kind)
	}
}

func TestClearLogs(t *testing.T) {
	svc := newTestService(t)
	svc.dispatch(msg.Envelope{
		Type:  msg.TypeLogActivity,
		Entry: testEntry("THYAO", activity.KindSessionStarted),
	})

	require.NoError(t, svc.ClearLogs(context.Background()))

	entries, err := svc.ListLogs(context.Background(), "", "", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestGetReportNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetReport(context.Background(), "missing")
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, CodeNotFound, coded.Code)
}

func TestForceReportWithoutWatcher(t *testing.T) {
	svc := newTestService(t)

	err := svc.ForceReport(context.Background())
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, CodeWatcherOffline, coded.Code)
}

func TestExportCSVEmpty(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ExportCSV(context.Background())
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, CodeNoData, coded.Code)
}

func TestExportCSVWithEntries(t *testing.T) {
	svc := newTestService(t)
	svc.dispatch(msg.Envelope{
		Type:  msg.TypeLogActivity,
		Entry: testEntry("THYAO", activity.KindSessionStarted),
	})

	data, err := svc.ExportCSV(context.Background())
	require.NoError(t, err)
	require.Contains(t, string(data), "THYAO")
}

func TestExportMarkdownChronological(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	first := activity.SessionReport{
		ID: "r1", Symbol: "FIRST",
		StartedAt: base, EndedAt: base.Add(time.Minute),
		DrawingCount: 1, Drawings: []activity.DrawingRecord{{Tool: "Trend Line"}},
	}
	second := activity.SessionReport{
		ID: "r2", Symbol: "SECOND",
		StartedAt: base.Add(time.Hour), EndedAt: base.Add(time.Hour + time.Minute),
		DrawingCount: 1, Drawings: []activity.DrawingRecord{{Tool: "Ray"}},
	}
	svc.dispatch(msg.Envelope{Type: msg.TypeSessionReport, Report: &first})
	svc.dispatch(msg.Envelope{Type: msg.TypeSessionReport, Report: &second})

	data, err := svc.ExportMarkdown(context.Background())
	require.NoError(t, err)
	text := string(data)
	require.Less(t, strings.Index(text, "FIRST"), strings.Index(text, "SECOND"))
}

func TestNotesRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetNote(ctx, "THYAO")
	require.Error(t, err)

	require.NoError(t, svc.SetNote(ctx, "THYAO", "watch the gap at open"))
	note, err := svc.GetNote(ctx, "THYAO")
	require.NoError(t, err)
	require.Equal(t, "watch the gap at open", note)

	require.NoError(t, svc.DeleteNote(ctx, "THYAO"))
	_, err = svc.GetNote(ctx, "THYAO")
	require.Error(t, err)
}

func TestSetNoteRequiresSymbol(t *testing.T) {
	svc := newTestService(t)

	err := svc.SetNote(context.Background(), "", "orphan note")
	var coded *CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, CodeValidation, coded.Code)
}

func TestGetStateWithoutWatcher(t *testing.T) {
	svc := newTestService(t)
	svc.dispatch(msg.Envelope{
		Type:  msg.TypeLogActivity,
		Entry: testEntry("THYAO", activity.KindSessionStarted),
	})

	state, err := svc.GetState(context.Background())
	require.NoError(t, err)
	require.False(t, state.WatcherConnected)
	require.Nil(t, state.WatcherSince)
	require.Nil(t, state.Watcher)
	require.Equal(t, 1, state.LogCount)
}

func TestDeliverStateWakesWaiters(t *testing.T) {
	svc := newTestService(t)

	ch := make(chan msg.State, 1)
	svc.mu.Lock()
	svc.stateWaiters = append(svc.stateWaiters, ch)
	svc.mu.Unlock()

	svc.deliverState(msg.State{Symbol: "THYAO", SessionActive: true})

	select {
	case st := <-ch:
		require.Equal(t, "THYAO", st.Symbol)
		require.True(t, st.SessionActive)
	case <-time.After(time.Second):
		t.Fatal("waiter never woken")
	}

	svc.mu.Lock()
	require.Empty(t, svc.stateWaiters)
	svc.mu.Unlock()
}

func TestCodedErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := newError(CodeStorageFailure, "save note", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "STORAGE_FAILURE")
}
