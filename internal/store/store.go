// Package store coordinates the scan and cleanup lifecycle against the backend
// and keeps the state the front end renders.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

const (
	DefaultPollInterval = time.Second
	defaultHistoryLimit = 50
)

var (
	ErrScanInProgress     = errors.New("store: a scan is already running")
	ErrCleaningInProgress = errors.New("store: a cleanup is already running")
	ErrNoScan             = errors.New("store: no scan started")
)

// Backend is the subset of the API client the store drives.
type Backend interface {
	SystemInfo(ctx context.Context) (apigen.SystemInfo, error)
	ScanHistory(ctx context.Context, limit int) (apigen.ScanHistory, error)
	CleaningHistory(ctx context.Context, scanID int64, limit int) (apigen.CleaningHistory, error)
	GetSettings(ctx context.Context, userID string) (apigen.Settings, error)
	StartScan(ctx context.Context, req apigen.ScanRequest) (apigen.ScanResponse, error)
	GetScanStatus(ctx context.Context, scanID int64) (apigen.ScanStatus, error)
	GetScanResults(ctx context.Context, scanID int64) (apigen.ScanResults, error)
	StartCleaning(ctx context.Context, req apigen.CleanRequest) (apigen.CleanResponse, error)
}

// Store owns a State. All methods are safe for concurrent use.
type Store struct {
	backend      Backend
	interval     time.Duration
	historyLimit int
	userID       string
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq atomic.Uint64

	mu       sync.Mutex
	state    State
	run      *scanRun
	gen      uint64
	watchers []*Watcher
}

type scanRun struct {
	id     int64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *scanRun) finish() {
	r.once.Do(func() {
		r.cancel()
		close(r.done)
	})
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets the status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithHistoryLimit caps the history lists fetched by Initialize.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithUserID sets the user id sent with scan and cleanup requests.
func WithUserID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.userID = id
		}
	}
}

// New returns a Store driving backend. Call Close to stop background polling.
func New(backend Backend, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:      backend,
		interval:     DefaultPollInterval,
		historyLimit: defaultHistoryLimit,
		userID:       apigen.DefaultUserID,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops polling, waits for it to exit and closes every watcher.
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		s.run.finish()
	}
	for _, w := range s.watchers {
		w.close()
	}
	s.watchers = nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// commit replaces the state and notifies watchers. Callers hold s.mu.
func (s *Store) commit(next State) {
	s.state = next
	for _, w := range s.watchers {
		w.offer(next.clone())
	}
}

func (s *Store) update(fn func(State) State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(fn(s.state))
}

// Initialize loads system info, both histories and the settings concurrently.
// Failures are logged and skipped; the store is marked initialized either way.
func (s *Store) Initialize(ctx context.Context) error {
	var (
		info     *apigen.SystemInfo
		history  []Scan
		cleaning []apigen.CleaningRecord
		settings *apigen.Settings
	)

	var g errgroup.Group
	g.Go(func() error {
		v, err := s.backend.SystemInfo(ctx)
		if err != nil {
			logrus.WithError(err).Debug("store: system info unavailable")
			return nil
		}
		info = &v
		return nil
	})
	g.Go(func() error {
		v, err := s.backend.ScanHistory(ctx, s.historyLimit)
		if err != nil {
			logrus.WithError(err).Debug("store: scan history unavailable")
			return nil
		}
		history = make([]Scan, 0, len(v.Scans))
		for _, rec := range v.Scans {
			history = append(history, scanFromRecord(rec))
		}
		return nil
	})
	g.Go(func() error {
		v, err := s.backend.CleaningHistory(ctx, 0, s.historyLimit)
		if err != nil {
			logrus.WithError(err).Debug("store: cleaning history unavailable")
			return nil
		}
		cleaning = v.History
		if cleaning == nil {
			cleaning = []apigen.CleaningRecord{}
		}
		return nil
	})
	g.Go(func() error {
		v, err := s.backend.GetSettings(ctx, s.userID)
		if err != nil {
			logrus.WithError(err).Debug("store: settings unavailable")
			return nil
		}
		settings = &v
		return nil
	})
	_ = g.Wait()

	s.update(func(st State) State {
		return initialized(st, info, history, cleaning, settings)
	})
	return ctx.Err()
}

// StartScan asks the backend to scan categories and polls its status in the
// background until it completes, fails or is stopped.
func (s *Store) StartScan(ctx context.Context, categories []string) (apigen.ScanResponse, error) {
	s.mu.Lock()
	if s.state.Scanning {
		s.mu.Unlock()
		return apigen.ScanResponse{}, ErrScanInProgress
	}
	s.gen++
	gen := s.gen
	s.commit(scanRequested(s.state))
	s.mu.Unlock()

	resp, err := s.backend.StartScan(ctx, apigen.ScanRequest{
		Categories: slices.Clone(categories),
		EnableAI:   true,
		UserID:     s.userID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.gen == gen {
			s.commit(scanRequestFailed(s.state))
		}
		return resp, err
	}
	if s.gen != gen {
		logrus.Debugf("store: scan %d accepted after stop, not tracking it", resp.ScanID)
		return resp, nil
	}

	s.commit(scanStarted(s.state, resp, categories, s.seq.Add(1), s.now()))
	runCtx, cancel := context.WithCancel(s.ctx)
	run := &scanRun{id: resp.ScanID, ctx: runCtx, cancel: cancel, done: make(chan struct{})}
	s.run = run
	s.wg.Add(1)
	go s.poll(run)
	return resp, nil
}

func (s *Store) poll(run *scanRun) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-run.ctx.Done():
			run.finish()
			return
		case <-ticker.C:
		}

		seq := s.seq.Add(1)
		status, err := s.backend.GetScanStatus(run.ctx, run.id)
		if err != nil {
			if run.ctx.Err() != nil {
				run.finish()
				return
			}
			s.applyScanUpdate(ScanUpdate{
				Seq:    seq,
				Source: SourcePoll,
				ScanID: run.id,
				Status: apigen.ScanStateFailed,
				Error:  err.Error(),
			})
			s.releaseIfVanished(run)
			return
		}

		id := status.ScanID
		if id == 0 {
			id = run.id
		}
		u := ScanUpdate{
			Seq:        seq,
			Source:     SourcePoll,
			ScanID:     id,
			Status:     status.Status,
			Progress:   status.Progress,
			TotalFiles: status.TotalFiles,
			TotalSize:  status.TotalSize,
		}
		if status.Error != nil {
			u.Error = *status.Error
		}
		s.applyScanUpdate(u)

		if s.releaseIfVanished(run) || s.settled(run.id) {
			return
		}
	}
}

// settled reports whether scan id reached a terminal phase. Whoever applied
// that phase finishes the run.
func (s *Store) settled(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.state.CurrentScan
	return cur != nil && cur.ID == id && cur.Phase.Terminal()
}

// releaseIfVanished finishes run when its scan is no longer the current one.
// Scanning is cleared unless a newer run has taken over.
func (s *Store) releaseIfVanished(run *scanRun) bool {
	s.mu.Lock()
	cur := s.state.CurrentScan
	if cur != nil && cur.ID == run.id {
		s.mu.Unlock()
		return false
	}
	if s.run == run && s.state.Scanning {
		logrus.Debugf("store: scan %d is no longer current, releasing it", run.id)
		s.commit(scanVanished(s.state))
	}
	s.mu.Unlock()
	run.finish()
	return true
}

// applyScanUpdate applies u and, on the transition into completed, fetches
// the results. Only one update can make that transition, so the results are
// fetched exactly once per scan.
func (s *Store) applyScanUpdate(u ScanUpdate) {
	s.mu.Lock()
	next, out := applyScanUpdate(s.state, u, s.now())
	if out == outcomeRejected {
		s.mu.Unlock()
		logrus.Debugf("store: ignoring %s update for scan %d (seq %d)", u.Status, u.ScanID, u.Seq)
		return
	}
	s.commit(next)
	run := s.run
	s.mu.Unlock()

	if run == nil || run.id != u.ScanID {
		run = nil
	}
	switch out {
	case outcomeCompleted:
		s.fetchResults(u.ScanID)
		if run != nil {
			run.finish()
		}
	case outcomeFailed:
		logrus.WithField("scan_id", u.ScanID).Warnf("store: scan failed: %s", u.Error)
		if run != nil {
			run.finish()
		}
	}
}

func (s *Store) fetchResults(id int64) {
	res, err := s.backend.GetScanResults(s.ctx, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		logrus.WithError(err).WithField("scan_id", id).Warn("store: fetching scan results failed")
		s.commit(scanResultsFailed(s.state, id, err.Error()))
		return
	}
	s.commit(scanResultsFetched(s.state, id, res))
}

// StopScan abandons the running scan locally: polling stops and Scanning is
// cleared. The backend is not told. It returns false when there is nothing to stop.
func (s *Store) StopScan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Scanning {
		return false
	}
	if cur := s.state.CurrentScan; cur != nil && cur.Phase == PhaseCompleted {
		// Results are on their way.
		return false
	}
	s.gen++
	s.commit(scanAbandoned(s.state, s.now()))
	if s.run != nil {
		s.run.finish()
	}
	return true
}

// Wait blocks until the most recent scan settles and returns its final view.
func (s *Store) Wait(ctx context.Context) (Scan, error) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return Scan{}, ErrNoScan
	}
	select {
	case <-run.done:
	case <-ctx.Done():
		return Scan{}, ctx.Err()
	}

	st := s.Snapshot()
	if st.CurrentScan != nil && st.CurrentScan.ID == run.id {
		return *st.CurrentScan, nil
	}
	for i := len(st.ScanHistory) - 1; i >= 0; i-- {
		if st.ScanHistory[i].ID == run.id {
			return st.ScanHistory[i], nil
		}
	}
	return Scan{ID: run.id}, nil
}

// SelectItem adds path to the cleanup selection. Duplicates are kept.
func (s *Store) SelectItem(path string) {
	s.update(func(st State) State { return selectItem(st, path) })
}

// DeselectItem removes every occurrence of path from the selection.
func (s *Store) DeselectItem(path string) {
	s.update(func(st State) State { return deselectItem(st, path) })
}

// SelectAll selects every item of the current scan's results.
func (s *Store) SelectAll() {
	s.update(selectAll)
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.update(clearSelection)
}

// StartCleaning deletes the selected items of the current scan. Without a
// current scan or a selection it does nothing and returns nil, nil.
func (s *Store) StartCleaning(ctx context.Context, createBackup bool) (*apigen.CleanResponse, error) {
	s.mu.Lock()
	cur := s.state.CurrentScan
	if cur == nil || len(s.state.Selected) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	if s.state.Cleaning {
		s.mu.Unlock()
		return nil, ErrCleaningInProgress
	}
	req := apigen.CleanRequest{
		ScanID:        cur.ID,
		SelectedItems: slices.Clone(s.state.Selected),
		CreateBackup:  createBackup,
		UserID:        s.userID,
	}
	s.commit(cleaningStarted(s.state))
	s.mu.Unlock()

	resp, err := s.backend.StartCleaning(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.commit(cleaningFailed(s.state))
		return nil, err
	}
	s.commit(cleaningFinished(s.state, req.ScanID, resp))
	return &resp, nil
}
