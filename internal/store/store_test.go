package store

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
	"github.com/ensigniasec/cleaner-client/internal/realtime"
)

const testInterval = 5 * time.Millisecond

func newTestStore(t *testing.T, f *fakeBackend, opts ...Option) *Store {
	t.Helper()
	s := New(f, append([]Option{WithPollInterval(testInterval)}, opts...)...)
	t.Cleanup(s.Close)
	return s
}

func waitScan(t *testing.T, s *Store) Scan {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	scan, err := s.Wait(ctx)
	require.NoError(t, err)
	return scan
}

func TestInitializeAlwaysCompletes(t *testing.T) {
	f := &fakeBackend{infoErr: errBackend, historyErr: errBackend, cleaningErr: errBackend, settingsErr: errBackend}
	s := newTestStore(t, f)
	require.NoError(t, s.Initialize(context.Background()))

	st := s.Snapshot()
	assert.True(t, st.Initialized)
	assert.Nil(t, st.SystemInfo)
	assert.Empty(t, st.ScanHistory)
	assert.Nil(t, st.Settings)
}

func TestInitializeLoadsWhatItCan(t *testing.T) {
	f := &fakeBackend{
		historyErr: errBackend,
		history:    nil,
	}
	s := newTestStore(t, f, WithUserID("alice"))
	require.NoError(t, s.Initialize(context.Background()))

	st := s.Snapshot()
	assert.True(t, st.Initialized)
	require.NotNil(t, st.SystemInfo)
	assert.Equal(t, "Linux", st.SystemInfo.OS)
	require.NotNil(t, st.Settings)
	assert.Equal(t, "alice", st.Settings.UserID)
	assert.Len(t, st.CleaningHistory, 1)
}

func TestSelectionAllowsDuplicates(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	s.SelectItem("/tmp/a")
	s.SelectItem("/tmp/a")
	s.SelectItem("/tmp/b")
	assert.Equal(t, []string{"/tmp/a", "/tmp/a", "/tmp/b"}, s.Snapshot().Selected)

	s.DeselectItem("/tmp/a")
	assert.Equal(t, []string{"/tmp/b"}, s.Snapshot().Selected)

	s.ClearSelection()
	assert.Empty(t, s.Snapshot().Selected)
}

func TestStartScanRequestBody(t *testing.T) {
	f := &fakeBackend{startResp: apigen.ScanResponse{ScanID: 9, Status: "started"}}
	s := newTestStore(t, f)

	_, err := s.StartScan(context.Background(), []string{"temp_files", "system_cache"})
	require.NoError(t, err)
	s.StopScan()

	require.Len(t, f.startReqs, 1)
	req := f.startReqs[0]
	assert.Equal(t, []string{"temp_files", "system_cache"}, req.Categories)
	assert.True(t, req.EnableAI)
	assert.Equal(t, "default", req.UserID)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories":["temp_files","system_cache"],"enable_ai":true,"user_id":"default"}`, string(raw))
}

func TestScanCompletedEndToEnd(t *testing.T) {
	f := &fakeBackend{
		startResp: apigen.ScanResponse{ScanID: 42, Status: "started"},
		history:   []apigen.ScanRecord{{ID: 1}, {ID: 2}},
		results:   sampleResults(42),
		status: func(n int) (apigen.ScanStatus, error) {
			if n < 3 {
				return apigen.ScanStatus{Status: apigen.ScanStateRunning, Progress: 0.3 * float64(n)}, nil
			}
			return apigen.ScanStatus{Status: apigen.ScanStateCompleted, Progress: 1, TotalFiles: ptr[int64](120), TotalSize: ptr[int64](500000)}, nil
		},
	}
	s := newTestStore(t, f)
	require.NoError(t, s.Initialize(context.Background()))
	before := len(s.Snapshot().ScanHistory)

	_, err := s.StartScan(context.Background(), []string{"temp_files", "system_cache"})
	require.NoError(t, err)
	assert.True(t, s.Snapshot().Scanning)

	scan := waitScan(t, s)
	assert.Equal(t, PhaseCompleted, scan.Phase)

	st := s.Snapshot()
	assert.False(t, st.Scanning)
	require.NotNil(t, st.CurrentScan)
	assert.Equal(t, int64(120), st.CurrentScan.TotalFiles)
	assert.Equal(t, int64(500000), st.CurrentScan.TotalSize)
	assert.Len(t, st.ScanHistory, before+1)
	assert.Len(t, st.CurrentScan.Items(), 3)

	// Late duplicates change nothing.
	s.handleEvent(event(t, apigen.EventScanComplete, apigen.ScanComplete{ScanID: 42, TotalFiles: 1}))
	time.Sleep(5 * testInterval)
	status, results, _ := f.counts()
	assert.Equal(t, 1, results)
	assert.Equal(t, 3, status)
	assert.Len(t, s.Snapshot().ScanHistory, before+1)
	assert.Equal(t, int64(120), s.Snapshot().CurrentScan.TotalFiles)
}

func TestScanFailedLeavesHistoryAlone(t *testing.T) {
	f := &fakeBackend{
		startResp: apigen.ScanResponse{ScanID: 5, Status: "started"},
		status: func(int) (apigen.ScanStatus, error) {
			return apigen.ScanStatus{Status: apigen.ScanStateFailed, Error: ptr("disk gone")}, nil
		},
	}
	s := newTestStore(t, f)

	_, err := s.StartScan(context.Background(), []string{"logs"})
	require.NoError(t, err)
	scan := waitScan(t, s)

	assert.Equal(t, PhaseFailed, scan.Phase)
	assert.Equal(t, "disk gone", scan.Error)
	st := s.Snapshot()
	assert.False(t, st.Scanning)
	assert.Empty(t, st.ScanHistory)
	_, results, _ := f.counts()
	assert.Zero(t, results)
}

func TestPollErrorFailsScan(t *testing.T) {
	f := &fakeBackend{
		startResp: apigen.ScanResponse{ScanID: 5, Status: "started"},
		status: func(int) (apigen.ScanStatus, error) {
			return apigen.ScanStatus{}, errBackend
		},
	}
	s := newTestStore(t, f)
	_, err := s.StartScan(context.Background(), []string{"logs"})
	require.NoError(t, err)

	scan := waitScan(t, s)
	assert.Equal(t, PhaseFailed, scan.Phase)
	assert.Contains(t, scan.Error, "backend down")
	assert.False(t, s.Snapshot().Scanning)
}

func TestStartScanFailureResetsFlag(t *testing.T) {
	f := &fakeBackend{startErr: errBackend}
	s := newTestStore(t, f)
	_, err := s.StartScan(context.Background(), []string{"logs"})
	require.ErrorIs(t, err, errBackend)
	assert.False(t, s.Snapshot().Scanning)
	assert.Nil(t, s.Snapshot().CurrentScan)
}

func TestStartScanRejectsOverlap(t *testing.T) {
	f := &fakeBackend{startResp: apigen.ScanResponse{ScanID: 1, Status: "started"}}
	s := newTestStore(t, f)

	_, err := s.StartScan(context.Background(), []string{"logs"})
	require.NoError(t, err)
	_, err = s.StartScan(context.Background(), []string{"logs"})
	require.ErrorIs(t, err, ErrScanInProgress)
	assert.Len(t, f.startReqs, 1)
}

func TestStopScanIsLocal(t *testing.T) {
	f := &fakeBackend{startResp: apigen.ScanResponse{ScanID: 3, Status: "started"}}
	s := newTestStore(t, f)

	assert.False(t, s.StopScan())
	_, err := s.StartScan(context.Background(), []string{"logs"})
	require.NoError(t, err)
	time.Sleep(3 * testInterval)

	assert.True(t, s.StopScan())
	scan := waitScan(t, s)
	assert.Equal(t, PhaseAbandoned, scan.Phase)
	assert.False(t, s.Snapshot().Scanning)

	polled, _, _ := f.counts()
	time.Sleep(5 * testInterval)
	after, _, _ := f.counts()
	assert.LessOrEqual(t, after-polled, 1)

	// A new scan may start right away.
	f.startResp = apigen.ScanResponse{ScanID: 4, Status: "started"}
	_, err = s.StartScan(context.Background(), []string{"logs"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), s.Snapshot().CurrentScan.ID)
}

func TestStartCleaningNoop(t *testing.T) {
	f := &fakeBackend{}
	s := newTestStore(t, f)

	resp, err := s.StartCleaning(context.Background(), true)
	require.NoError(t, err)
	assert.Nil(t, resp)

	s.update(func(st State) State {
		st = st.clone()
		st.CurrentScan = &Scan{ID: 7, Phase: PhaseCompleted}
		return st
	})
	resp, err = s.StartCleaning(context.Background(), true)
	require.NoError(t, err)
	assert.Nil(t, resp)

	_, _, cleans := f.counts()
	assert.Zero(t, cleans)
	assert.False(t, s.Snapshot().Cleaning)
}

func completedStore(t *testing.T, f *fakeBackend) *Store {
	t.Helper()
	f.startResp = apigen.ScanResponse{ScanID: 42, Status: "started"}
	f.results = sampleResults(42)
	f.status = func(int) (apigen.ScanStatus, error) {
		return apigen.ScanStatus{Status: apigen.ScanStateCompleted, Progress: 1}, nil
	}
	s := newTestStore(t, f)
	_, err := s.StartScan(context.Background(), []string{"temp_files"})
	require.NoError(t, err)
	waitScan(t, s)
	return s
}

func TestStartCleaningSuccess(t *testing.T) {
	f := &fakeBackend{cleanResp: apigen.CleanResponse{Success: true, FilesDeleted: 3, BytesFreed: 350}}
	s := completedStore(t, f)

	s.SelectAll()
	assert.Equal(t, []string{"/home/u/.cache/x", "/tmp/a", "/tmp/b"}, s.Snapshot().Selected)

	resp, err := s.StartCleaning(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, int64(350), resp.BytesFreed)

	require.Len(t, f.cleanReqs, 1)
	req := f.cleanReqs[0]
	assert.Equal(t, int64(42), req.ScanID)
	assert.Len(t, req.SelectedItems, 3)
	assert.True(t, req.CreateBackup)
	assert.Equal(t, "default", req.UserID)

	st := s.Snapshot()
	assert.False(t, st.Cleaning)
	assert.Empty(t, st.Selected)
	assert.Nil(t, st.CurrentScan)
	require.NotNil(t, st.LastCleaning)
	assert.Equal(t, int64(3), st.LastCleaning.FilesDeleted)
}

func TestStartCleaningFailure(t *testing.T) {
	f := &fakeBackend{cleanErr: errBackend}
	s := completedStore(t, f)
	s.SelectItem("/tmp/a")

	resp, err := s.StartCleaning(context.Background(), false)
	require.ErrorIs(t, err, errBackend)
	assert.Nil(t, resp)

	st := s.Snapshot()
	assert.False(t, st.Cleaning)
	assert.Equal(t, []string{"/tmp/a"}, st.Selected)
	assert.NotNil(t, st.CurrentScan)
}

func event(t *testing.T, typ apigen.EventType, v any) realtime.Event {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return realtime.Event{Type: typ, Data: raw, Received: time.Now()}
}

func TestPushDrivesScan(t *testing.T) {
	f := &fakeBackend{startResp: apigen.ScanResponse{ScanID: 11, Status: "started"}, results: sampleResults(11)}
	s := New(f, WithPollInterval(time.Hour))
	t.Cleanup(s.Close)

	_, err := s.StartScan(context.Background(), []string{"temp_files"})
	require.NoError(t, err)

	events := make(chan realtime.Event, 8)
	events <- event(t, apigen.EventScanProgress, apigen.ScanProgress{ScanID: 11, Status: "running", Progress: 0.6})
	events <- event(t, apigen.EventScanProgress, apigen.ScanProgress{ScanID: 99, Status: "running", Progress: 0.9})
	events <- event(t, apigen.EventScanProgress, apigen.ScanProgress{ScanID: 11, Status: "running", Progress: 0.2})
	events <- event(t, apigen.EventScanComplete, apigen.ScanComplete{ScanID: 11, TotalFiles: 3, TotalSize: 350})
	events <- event(t, apigen.EventScanProgress, apigen.ScanProgress{ScanID: 11, Status: "running", Progress: 0.1})
	close(events)

	s.Consume(context.Background(), events)

	st := s.Snapshot()
	require.NotNil(t, st.CurrentScan)
	assert.Equal(t, PhaseCompleted, st.CurrentScan.Phase)
	assert.InDelta(t, 1.0, st.CurrentScan.Progress, 1e-9)
	assert.Equal(t, int64(3), st.CurrentScan.TotalFiles)
	assert.False(t, st.Scanning)
	assert.Len(t, st.ScanHistory, 1)
	_, results, _ := f.counts()
	assert.Equal(t, 1, results)
}

func TestPushCleaningProgress(t *testing.T) {
	f := &fakeBackend{}
	s := newTestStore(t, f)
	s.update(func(st State) State {
		st = st.clone()
		st.CurrentScan = &Scan{ID: 8, Phase: PhaseCompleted}
		return cleaningStarted(st)
	})

	s.handleEvent(event(t, apigen.EventCleaningProgress, apigen.CleaningProgress{ScanID: 8, Progress: 0.5, FilesProcessed: 4, CurrentFile: "/tmp/x"}))
	s.handleEvent(event(t, apigen.EventCleaningProgress, apigen.CleaningProgress{ScanID: 8, Progress: 0.2}))
	cp := s.Snapshot().CleaningProgress
	require.NotNil(t, cp)
	assert.InDelta(t, 0.5, cp.Progress, 1e-9)
	assert.Equal(t, "/tmp/x", cp.CurrentFile)

	s.handleEvent(event(t, apigen.EventCleaningComplete, apigen.CleaningComplete{ScanID: 8, Success: true, FilesDeleted: 9}))
	cp = s.Snapshot().CleaningProgress
	assert.InDelta(t, 1.0, cp.Progress, 1e-9)
	assert.Equal(t, int64(9), cp.FilesProcessed)
}

func TestWatcherSeesLatestState(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	w := s.Subscribe()

	first := <-w.C()
	assert.False(t, first.Initialized)

	s.SelectItem("/a")
	s.SelectItem("/b")
	latest := <-w.C()
	assert.Equal(t, []string{"/a", "/b"}, latest.Selected)

	w.Close()
	w.Close()
	_, ok := <-w.C()
	assert.False(t, ok)
}

func TestWaitWithoutScan(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	_, err := s.Wait(context.Background())
	require.ErrorIs(t, err, ErrNoScan)
}

func TestCleaningDoesNotClobberNewerScan(t *testing.T) {
	var secondDone atomic.Bool
	gate := make(chan struct{})
	f := &fakeBackend{cleanResp: apigen.CleanResponse{Success: true, FilesDeleted: 1}}
	s := completedStore(t, f)
	f.mu.Lock()
	f.cleanGate = gate
	f.startResp = apigen.ScanResponse{ScanID: 43, Status: "started"}
	f.results = sampleResults(43)
	f.status = func(int) (apigen.ScanStatus, error) {
		if secondDone.Load() {
			return apigen.ScanStatus{Status: apigen.ScanStateCompleted, Progress: 1}, nil
		}
		return apigen.ScanStatus{Status: apigen.ScanStateRunning, Progress: 0.5}, nil
	}
	f.mu.Unlock()

	s.SelectItem("/tmp/a")
	cleaned := make(chan error, 1)
	go func() {
		_, err := s.StartCleaning(context.Background(), true)
		cleaned <- err
	}()
	require.Eventually(t, func() bool {
		_, _, cleans := f.counts()
		return cleans == 1
	}, 2*time.Second, time.Millisecond)

	_, err := s.StartScan(context.Background(), []string{"cache"})
	require.NoError(t, err)
	close(gate)
	require.NoError(t, <-cleaned)

	st := s.Snapshot()
	require.NotNil(t, st.CurrentScan)
	assert.Equal(t, int64(43), st.CurrentScan.ID)
	assert.True(t, st.Scanning)

	secondDone.Store(true)
	scan := waitScan(t, s)
	assert.Equal(t, int64(43), scan.ID)
	assert.Equal(t, PhaseCompleted, scan.Phase)
	assert.False(t, s.Snapshot().Scanning)

	_, err = s.StartScan(context.Background(), []string{"cache"})
	require.NoError(t, err)
}

func TestPollReleasesVanishedScan(t *testing.T) {
	f := &fakeBackend{startResp: apigen.ScanResponse{ScanID: 5, Status: "started"}}
	s := newTestStore(t, f)
	_, err := s.StartScan(context.Background(), nil)
	require.NoError(t, err)

	s.update(func(st State) State {
		st = st.clone()
		st.CurrentScan = nil
		return st
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = s.Wait(ctx)
	require.NoError(t, err)
	assert.False(t, s.Snapshot().Scanning)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := completedStore(t, &fakeBackend{})

	snap := s.Snapshot()
	require.NotNil(t, snap.CurrentScan)
	snap.CurrentScan.Categories[0] = "logs"
	delete(snap.CurrentScan.Results, "cache")
	tmp := snap.CurrentScan.Results["temp_files"]
	tmp.Items[0].Path = "/etc/passwd"
	snap.ScanHistory[0].Results["temp_files"].Items[1].Path = "/etc/shadow"

	cur := s.Snapshot().CurrentScan
	assert.Equal(t, []string{"temp_files"}, cur.Categories)
	assert.Contains(t, cur.Results, "cache")
	assert.Equal(t, "/tmp/a", cur.Results["temp_files"].Items[0].Path)
	assert.Equal(t, "/tmp/b", s.Snapshot().ScanHistory[0].Results["temp_files"].Items[1].Path)
}
