package store

import (
	"maps"
	"slices"
	"time"

	apigen "github.com/ensigniasec/cleaner-client/internal/api-gen"
)

// Phase is the lifecycle position of a scan. Phases only move forward.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseStarted
	PhaseRunning
	PhaseCompleted
	PhaseFailed
	PhaseAbandoned
)

// Terminal reports whether the scan can no longer change phase.
func (p Phase) Terminal() bool { return p >= PhaseCompleted }

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseAbandoned:
		return "abandoned"
	default:
		return "none"
	}
}

func phaseOf(s apigen.ScanState) Phase {
	switch s {
	case apigen.ScanStateStarted:
		return PhaseStarted
	case apigen.ScanStateCompleted:
		return PhaseCompleted
	case apigen.ScanStateFailed:
		return PhaseFailed
	default:
		return PhaseRunning
	}
}

// Scan is the client view of one backend scan.
type Scan struct {
	ID             int64
	Categories     []string
	Phase          Phase
	Status         string
	Progress       float64
	TotalFiles     int64
	TotalSize      int64
	CategoryCounts map[string]int64
	Results        map[string]apigen.CategoryResult
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time

	lastSeq uint64
}

func (s Scan) clone() Scan {
	out := s
	out.Categories = slices.Clone(s.Categories)
	out.CategoryCounts = maps.Clone(s.CategoryCounts)
	if s.Results != nil {
		out.Results = make(map[string]apigen.CategoryResult, len(s.Results))
		for name, res := range s.Results {
			res.Items = slices.Clone(res.Items)
			out.Results[name] = res
		}
	}
	return out
}

// Items returns every result item ordered by category name.
func (s Scan) Items() []apigen.ScanItem {
	var out []apigen.ScanItem
	for _, name := range slices.Sorted(maps.Keys(s.Results)) {
		out = append(out, s.Results[name].Items...)
	}
	return out
}

func scanFromRecord(rec apigen.ScanRecord) Scan {
	started := rec.Timestamp.Time
	return Scan{
		ID:             rec.ID,
		Phase:          PhaseCompleted,
		Status:         string(apigen.ScanStateCompleted),
		Progress:       1,
		TotalFiles:     rec.TotalFiles,
		TotalSize:      rec.TotalSize,
		CategoryCounts: rec.Categories,
		StartedAt:      started,
		FinishedAt:     started.Add(time.Duration(rec.DurationSeconds * float64(time.Second))),
	}
}

// CleaningProgress is the live progress of a running cleanup, fed by pushed events.
type CleaningProgress struct {
	ScanID         int64
	Progress       float64
	FilesProcessed int64
	CurrentFile    string
}

// State is everything the front end renders. It is owned by a Store and
// only changed through the transition functions below, which never modify
// their input.
type State struct {
	Initialized bool
	Scanning    bool
	Cleaning    bool

	CurrentScan      *Scan
	Selected         []string
	ScanHistory      []Scan
	CleaningHistory  []apigen.CleaningRecord
	SystemInfo       *apigen.SystemInfo
	Settings         *apigen.Settings
	LastCleaning     *apigen.CleanResponse
	CleaningProgress *CleaningProgress
}

// clone copies st deeply enough that no slice or map is shared with the result.
func (st State) clone() State {
	out := st
	out.Selected = slices.Clone(st.Selected)
	out.ScanHistory = make([]Scan, len(st.ScanHistory))
	for i, sc := range st.ScanHistory {
		out.ScanHistory[i] = sc.clone()
	}
	if st.ScanHistory == nil {
		out.ScanHistory = nil
	}
	out.CleaningHistory = slices.Clone(st.CleaningHistory)
	if st.CurrentScan != nil {
		cur := st.CurrentScan.clone()
		out.CurrentScan = &cur
	}
	if st.CleaningProgress != nil {
		cp := *st.CleaningProgress
		out.CleaningProgress = &cp
	}
	return out
}

// Source tells where a scan update came from.
type Source int

const (
	SourcePoll Source = iota
	SourcePush
)

// ScanUpdate is a status observation for one scan. Seq orders observations:
// polls take it before the request is sent, pushed events when they arrive.
type ScanUpdate struct {
	Seq        uint64
	Source     Source
	ScanID     int64
	Status     apigen.ScanState
	Progress   float64
	TotalFiles *int64
	TotalSize  *int64
	Error      string
}

type outcome int

const (
	outcomeRejected outcome = iota
	outcomeApplied
	outcomeCompleted
	outcomeFailed
)

func initialized(st State, info *apigen.SystemInfo, history []Scan, cleaning []apigen.CleaningRecord, settings *apigen.Settings) State {
	st = st.clone()
	st.Initialized = true
	if info != nil {
		st.SystemInfo = info
	}
	if history != nil {
		st.ScanHistory = history
	}
	if cleaning != nil {
		st.CleaningHistory = cleaning
	}
	if settings != nil {
		st.Settings = settings
	}
	return st
}

func scanRequested(st State) State {
	st = st.clone()
	st.Scanning = true
	return st
}

func scanRequestFailed(st State) State {
	st = st.clone()
	st.Scanning = false
	return st
}

func scanStarted(st State, resp apigen.ScanResponse, categories []string, seq uint64, now time.Time) State {
	st = st.clone()
	st.Scanning = true
	st.Selected = nil
	st.CurrentScan = &Scan{
		ID:             resp.ScanID,
		Categories:     slices.Clone(categories),
		Phase:          PhaseStarted,
		Status:         resp.Status,
		TotalFiles:     resp.TotalFiles,
		TotalSize:      resp.TotalSize,
		CategoryCounts: resp.Categories,
		StartedAt:      now,
		lastSeq:        seq,
	}
	return st
}

// applyScanUpdate folds u into the current scan. Updates for another scan,
// older than the last applied one, or arriving after a terminal phase are
// rejected. Progress never decreases.
func applyScanUpdate(st State, u ScanUpdate, now time.Time) (State, outcome) {
	cur := st.CurrentScan
	if cur == nil || cur.ID != u.ScanID || u.Seq <= cur.lastSeq || cur.Phase.Terminal() {
		return st, outcomeRejected
	}
	st = st.clone()
	scan := st.CurrentScan
	scan.lastSeq = u.Seq
	if u.Status != "" {
		scan.Status = string(u.Status)
	}
	if p := phaseOf(u.Status); p > scan.Phase {
		scan.Phase = p
	}
	scan.Progress = max(scan.Progress, u.Progress)
	if u.TotalFiles != nil {
		scan.TotalFiles = *u.TotalFiles
	}
	if u.TotalSize != nil {
		scan.TotalSize = *u.TotalSize
	}

	switch scan.Phase {
	case PhaseCompleted:
		scan.Progress = max(scan.Progress, 1)
		scan.FinishedAt = now
		return st, outcomeCompleted
	case PhaseFailed:
		scan.Error = u.Error
		scan.FinishedAt = now
		st.Scanning = false
		return st, outcomeFailed
	default:
		return st, outcomeApplied
	}
}

func scanResultsFetched(st State, scanID int64, res apigen.ScanResults) State {
	if st.CurrentScan == nil || st.CurrentScan.ID != scanID {
		return st
	}
	st = st.clone()
	st.Scanning = false
	st.CurrentScan.Results = res.Results
	st.ScanHistory = append(st.ScanHistory, *st.CurrentScan)
	return st
}

func scanResultsFailed(st State, scanID int64, msg string) State {
	if st.CurrentScan == nil || st.CurrentScan.ID != scanID {
		return st
	}
	st = st.clone()
	st.Scanning = false
	st.CurrentScan.Error = msg
	return st
}

// scanVanished clears Scanning when the tracked scan was replaced or removed
// without reaching a terminal phase.
func scanVanished(st State) State {
	st = st.clone()
	st.Scanning = false
	return st
}

func scanAbandoned(st State, now time.Time) State {
	st = st.clone()
	st.Scanning = false
	if cur := st.CurrentScan; cur != nil && !cur.Phase.Terminal() {
		cur.Phase = PhaseAbandoned
		cur.FinishedAt = now
	}
	return st
}

func selectItem(st State, path string) State {
	st = st.clone()
	st.Selected = append(st.Selected, path)
	return st
}

func deselectItem(st State, path string) State {
	st = st.clone()
	st.Selected = slices.DeleteFunc(st.Selected, func(p string) bool { return p == path })
	return st
}

func selectAll(st State) State {
	st = st.clone()
	st.Selected = nil
	if st.CurrentScan != nil {
		for _, item := range st.CurrentScan.Items() {
			st.Selected = append(st.Selected, item.Path)
		}
	}
	return st
}

func clearSelection(st State) State {
	st = st.clone()
	st.Selected = nil
	return st
}

func cleaningStarted(st State) State {
	st = st.clone()
	st.Cleaning = true
	st.CleaningProgress = &CleaningProgress{ScanID: st.CurrentScan.ID}
	return st
}

// cleaningFinished records resp for the cleanup of scanID. The scan and the
// selection are cleared only while that scan is still the current one; a scan
// started during the cleanup keeps running.
func cleaningFinished(st State, scanID int64, resp apigen.CleanResponse) State {
	st = st.clone()
	st.Cleaning = false
	if st.CurrentScan != nil && st.CurrentScan.ID == scanID {
		st.Selected = nil
		st.CurrentScan = nil
	}
	st.CleaningProgress = nil
	st.LastCleaning = &resp
	return st
}

func cleaningFailed(st State) State {
	st = st.clone()
	st.Cleaning = false
	st.CleaningProgress = nil
	return st
}

func cleaningProgressed(st State, p apigen.CleaningProgress) State {
	cur := st.CleaningProgress
	if !st.Cleaning || cur == nil || (p.ScanID != 0 && p.ScanID != cur.ScanID) || p.Progress < cur.Progress {
		return st
	}
	st = st.clone()
	st.CleaningProgress.Progress = p.Progress
	st.CleaningProgress.FilesProcessed = p.FilesProcessed
	st.CleaningProgress.CurrentFile = p.CurrentFile
	return st
}

func cleaningPushedComplete(st State, c apigen.CleaningComplete) State {
	cur := st.CleaningProgress
	if !st.Cleaning || cur == nil || (c.ScanID != 0 && c.ScanID != cur.ScanID) {
		return st
	}
	st = st.clone()
	st.CleaningProgress.Progress = 1
	st.CleaningProgress.FilesProcessed = c.FilesDeleted
	st.CleaningProgress.CurrentFile = ""
	return st
}
