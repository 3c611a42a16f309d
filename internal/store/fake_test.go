package store

import (
	"context"
	"errors"
	"sync"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

var errBackend = errors.New("backend down")

// fakeBackend records calls and answers from configurable functions.
type fakeBackend struct {
	mu sync.Mutex

	startReqs    []apigen.ScanRequest
	statusCalls  int
	resultsCalls int
	cleanReqs    []apigen.CleanRequest

	infoErr     error
	historyErr  error
	cleaningErr error
	settingsErr error
	history     []apigen.ScanRecord

	startResp apigen.ScanResponse
	startErr  error
	// status answers the nth (1-based) status poll.
	status  func(n int) (apigen.ScanStatus, error)
	results apigen.ScanResults
	resErr  error

	cleanResp apigen.CleanResponse
	cleanErr  error
	// cleanGate, when set, holds StartCleaning until it is closed.
	cleanGate chan struct{}
}

func (f *fakeBackend) SystemInfo(context.Context) (apigen.SystemInfo, error) {
	if f.infoErr != nil {
		return apigen.SystemInfo{}, f.infoErr
	}
	return apigen.SystemInfo{OS: "Linux"}, nil
}

func (f *fakeBackend) ScanHistory(context.Context, int) (apigen.ScanHistory, error) {
	if f.historyErr != nil {
		return apigen.ScanHistory{}, f.historyErr
	}
	return apigen.ScanHistory{Scans: f.history}, nil
}

func (f *fakeBackend) CleaningHistory(context.Context, int64, int) (apigen.CleaningHistory, error) {
	if f.cleaningErr != nil {
		return apigen.CleaningHistory{}, f.cleaningErr
	}
	return apigen.CleaningHistory{History: []apigen.CleaningRecord{{ID: 1, Success: true}}}, nil
}

func (f *fakeBackend) GetSettings(_ context.Context, userID string) (apigen.Settings, error) {
	if f.settingsErr != nil {
		return apigen.Settings{}, f.settingsErr
	}
	return apigen.Settings{UserID: userID, Theme: "dark", Language: "de"}, nil
}

func (f *fakeBackend) StartScan(_ context.Context, req apigen.ScanRequest) (apigen.ScanResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startReqs = append(f.startReqs, req)
	return f.startResp, f.startErr
}

func (f *fakeBackend) GetScanStatus(ctx context.Context, _ int64) (apigen.ScanStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	n := f.statusCalls
	fn := f.status
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return apigen.ScanStatus{}, err
	}
	if fn == nil {
		return apigen.ScanStatus{Status: apigen.ScanStateRunning}, nil
	}
	return fn(n)
}

func (f *fakeBackend) GetScanResults(context.Context, int64) (apigen.ScanResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultsCalls++
	return f.results, f.resErr
}

func (f *fakeBackend) StartCleaning(_ context.Context, req apigen.CleanRequest) (apigen.CleanResponse, error) {
	f.mu.Lock()
	f.cleanReqs = append(f.cleanReqs, req)
	gate := f.cleanGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleanResp, f.cleanErr
}

func (f *fakeBackend) counts() (status, results, cleans int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.resultsCalls, len(f.cleanReqs)
}

func ptr[T any](v T) *T { return &v }

func sampleResults(id int64) apigen.ScanResults {
	return apigen.ScanResults{
		ScanID: id,
		Results: map[string]apigen.CategoryResult{
			"temp_files": {Name: "Temp", TotalCount: 2, TotalSize: 300, Items: []apigen.ScanItem{
				{Path: "/tmp/a", Size: 100}, {Path: "/tmp/b", Size: 200},
			}},
			"cache": {Name: "Cache", TotalCount: 1, TotalSize: 50, Items: []apigen.ScanItem{
				{Path: "/home/u/.cache/x", Size: 50},
			}},
		},
	}
}
