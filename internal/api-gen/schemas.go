// Package apigen holds the wire schemas of the cleaner backend API and its push channel.
//
// Field names mirror the backend JSON exactly. The validate tags are checked by the
// api and realtime packages right after decoding, so a response that does not match
// its schema is reported as a decode failure rather than surfacing half-filled structs.
package apigen

import "encoding/json"

// DefaultUserID is the user the backend falls back to when none is supplied.
const DefaultUserID = "default"

// DefaultCategories are scanned when neither the caller nor the settings name any.
//
//nolint:gochecknoglobals // read-only list.
var DefaultCategories = []string{"temp_files", "cache", "logs"}

// Error is the error body returned by the backend on non-2xx responses.
type Error struct {
	Detail string `json:"detail"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status" validate:"required"`
	Timestamp Timestamp `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health status values. Anything other than HealthStatusHealthy is treated as unhealthy.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// ServerStatus is returned by GET /status.
type ServerStatus struct {
	ServerStatus     string  `json:"server_status" validate:"required"`
	ActiveScans      int     `json:"active_scans" validate:"gte=0"`
	ConnectedClients int     `json:"connected_clients" validate:"gte=0"`
	CPUUsage         float64 `json:"cpu_usage"`
	MemoryUsage      float64 `json:"memory_usage"`
	Uptime           float64 `json:"uptime"`
}

// CPUInfo describes the host processor.
type CPUInfo struct {
	Model     string  `json:"model"`
	Cores     int     `json:"cores"`
	Threads   int     `json:"threads"`
	Frequency float64 `json:"frequency"`
	Usage     float64 `json:"usage"`
}

// MemoryInfo describes host memory in bytes.
type MemoryInfo struct {
	Total     int64   `json:"total"`
	Available int64   `json:"available"`
	Usage     float64 `json:"usage"`
}

// DiskInfo describes a mounted device.
type DiskInfo struct {
	Device  string  `json:"device"`
	Total   int64   `json:"total"`
	Free    int64   `json:"free"`
	Percent float64 `json:"percent"`
}

// GPUInfo describes the primary GPU, when one is present.
type GPUInfo struct {
	Name   *string `json:"name"`
	Memory *int64  `json:"memory"`
	Usage  float64 `json:"usage"`
}

// NetworkInterface describes a network interface.
type NetworkInterface struct {
	Interface string  `json:"interface"`
	IsUp      bool    `json:"is_up"`
	Speed     float64 `json:"speed"`
}

// SystemInfo is returned by GET /system/info.
type SystemInfo struct {
	OS      string             `json:"os" validate:"required"`
	CPU     CPUInfo            `json:"cpu"`
	Memory  MemoryInfo         `json:"memory"`
	Disk    []DiskInfo         `json:"disk"`
	GPU     *GPUInfo           `json:"gpu"`
	Network []NetworkInterface `json:"network"`
}

// SystemUsage is returned by GET /system/usage.
type SystemUsage struct {
	Timestamp Timestamp `json:"timestamp"`
	CPU       struct {
		Overall float64   `json:"overall"`
		PerCore []float64 `json:"per_core"`
	} `json:"cpu"`
	Memory struct {
		Percent   float64 `json:"percent"`
		Used      int64   `json:"used"`
		Available int64   `json:"available"`
	} `json:"memory"`
	DiskIO struct {
		Read  float64 `json:"read"`
		Write float64 `json:"write"`
	} `json:"disk_io"`
	Network struct {
		Sent float64 `json:"sent"`
		Recv float64 `json:"recv"`
	} `json:"network"`
	GPU struct {
		Usage       *float64 `json:"usage"`
		Memory      *float64 `json:"memory"`
		Temperature *float64 `json:"temperature"`
	} `json:"gpu"`
}

// Process is a single row of GET /system/processes.
type Process struct {
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryRSS     int64   `json:"memory_rss"`
	NumThreads    int     `json:"num_threads"`
	Status        string  `json:"status"`
}

// ProcessList is returned by GET /system/processes.
type ProcessList struct {
	Processes []Process `json:"processes"`
}

// ScanRequest is the body of POST /scan/start.
type ScanRequest struct {
	Categories []string `json:"categories" validate:"required,min=1,dive,required"`
	EnableAI   bool     `json:"enable_ai"`
	UserID     string   `json:"user_id"`
}

// ScanResponse is returned by POST /scan/start once the backend accepted the scan.
type ScanResponse struct {
	ScanID     int64            `json:"scan_id" validate:"gt=0"`
	Status     string           `json:"status" validate:"required"`
	TotalFiles int64            `json:"total_files"`
	TotalSize  int64            `json:"total_size"`
	Categories map[string]int64 `json:"categories"`
	Message    string           `json:"message"`
}

// ScanState is the lifecycle label reported by GET /scan/status/{scan_id}.
// While running the backend may report free-form progress labels; those are
// treated like ScanStateRunning.
type ScanState string

// Defines values for ScanState.
const (
	ScanStateStarted   ScanState = "started"
	ScanStateRunning   ScanState = "running"
	ScanStateCompleted ScanState = "completed"
	ScanStateFailed    ScanState = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s ScanState) IsTerminal() bool {
	return s == ScanStateCompleted || s == ScanStateFailed
}

// ScanStatus is returned by GET /scan/status/{scan_id}.
type ScanStatus struct {
	ScanID     int64     `json:"scan_id" validate:"gte=0"`
	Status     ScanState `json:"status" validate:"required"`
	Progress   float64   `json:"progress" validate:"gte=0"`
	Error      *string   `json:"error,omitempty"`
	TotalFiles *int64    `json:"total_files,omitempty" validate:"omitempty,gte=0"`
	TotalSize  *int64    `json:"total_size,omitempty" validate:"omitempty,gte=0"`
}

// ScanItem is a single cleanup candidate.
type ScanItem struct {
	Path          string  `json:"path" validate:"required"`
	Size          int64   `json:"size" validate:"gte=0"`
	SafetyScore   float64 `json:"safety_score"`
	AIExplanation *string `json:"ai_explanation"`
}

// CategoryResult groups the candidates of one scan category.
type CategoryResult struct {
	Name       string     `json:"name"`
	TotalCount int64      `json:"total_count" validate:"gte=0"`
	TotalSize  int64      `json:"total_size" validate:"gte=0"`
	Items      []ScanItem `json:"items" validate:"dive"`
}

// ScanResults is returned by GET /scan/results/{scan_id}.
// When the scan is not completed yet only Status and Message are set.
type ScanResults struct {
	ScanID  int64                     `json:"scan_id"`
	Status  string                    `json:"status,omitempty"`
	Message string                    `json:"message,omitempty"`
	Results map[string]CategoryResult `json:"results" validate:"dive"`
}

// ScanRecord is a persisted scan as returned by GET /scan/history.
type ScanRecord struct {
	ID              int64            `json:"id"`
	Timestamp       Timestamp        `json:"timestamp"`
	DurationSeconds float64          `json:"duration_seconds"`
	TotalFiles      int64            `json:"total_files"`
	TotalSize       int64            `json:"total_size"`
	Categories      map[string]int64 `json:"categories"`
	CleanedFiles    int64            `json:"cleaned_files"`
	FreedSpace      int64            `json:"freed_space"`
	UserID          *string          `json:"user_id"`
}

// ScanHistory is returned by GET /scan/history.
type ScanHistory struct {
	Scans []ScanRecord `json:"scans"`
}

// CleanRequest is the body of POST /clean/start.
type CleanRequest struct {
	ScanID        int64    `json:"scan_id" validate:"gt=0"`
	SelectedItems []string `json:"selected_items" validate:"required,min=1,dive,required"`
	CreateBackup  bool     `json:"create_backup"`
	UserID        string   `json:"user_id"`
}

// CleanResponse is returned by POST /clean/start.
type CleanResponse struct {
	Success      bool    `json:"success"`
	FilesDeleted int64   `json:"files_deleted" validate:"gte=0"`
	BytesFreed   int64   `json:"bytes_freed" validate:"gte=0"`
	BackupPath   *string `json:"backup_path"`
	Message      string  `json:"message"`
}

// CleaningRecord is a persisted cleaning run as returned by GET /clean/history.
type CleaningRecord struct {
	ID             int64     `json:"id"`
	ScanID         *int64    `json:"scan_id"`
	Timestamp      Timestamp `json:"timestamp"`
	FilesDeleted   []string  `json:"files_deleted"`
	TotalSizeFreed int64     `json:"total_size_freed"`
	BackupPath     *string   `json:"backup_path"`
	Success        bool      `json:"success"`
	ErrorMessage   *string   `json:"error_message"`
}

// CleaningHistory is returned by GET /clean/history.
type CleaningHistory struct {
	History []CleaningRecord `json:"history"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Prompt      string  `json:"prompt" validate:"required"`
	Context     *string `json:"context,omitempty"`
	MaxTokens   int     `json:"max_tokens" validate:"gt=0"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=2"`
}

// ChatResponse is returned by POST /ai/chat.
type ChatResponse struct {
	Response       string  `json:"response"`
	ModelUsed      string  `json:"model_used"`
	TokensUsed     int     `json:"tokens_used" validate:"gte=0"`
	ResponseTimeMS float64 `json:"response_time_ms"`
}

// Model describes a backend AI model.
type Model struct {
	Name        string  `json:"name" validate:"required"`
	Provider    string  `json:"provider"`
	SizeGB      float64 `json:"size_gb"`
	IsAvailable bool    `json:"is_available"`
	IsLoaded    bool    `json:"is_loaded"`
}

// ModelList is returned by GET /ai/models.
type ModelList struct {
	Models []Model `json:"models" validate:"dive"`
}

// Settings is returned by GET /settings/{user_id} and sent to POST /settings/update.
type Settings struct {
	UserID             string   `json:"user_id" validate:"required"`
	AutoScanEnabled    bool     `json:"auto_scan_enabled"`
	DataSharingEnabled bool     `json:"data_sharing_enabled"`
	Theme              string   `json:"theme"`
	Language           string   `json:"language"`
	SelectedCategories []string `json:"selected_categories"`
}

// SettingsUpdateResponse is returned by POST /settings/update.
type SettingsUpdateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EventType names a message pushed over the real-time channel.
type EventType string

// Defines values for EventType.
const (
	EventSystemUpdate     EventType = "system_update"
	EventScanProgress     EventType = "scan_progress"
	EventScanComplete     EventType = "scan_complete"
	EventCleaningProgress EventType = "cleaning_progress"
	EventCleaningComplete EventType = "cleaning_complete"
	EventSystemAlert      EventType = "system_alert"
)

// Envelope is the frame of every real-time message.
type Envelope struct {
	Type EventType       `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// SystemUpdate is the payload of system_update.
type SystemUpdate struct {
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	DiskIO    float64   `json:"disk_io"`
	Timestamp Timestamp `json:"timestamp"`
}

// ScanProgress is the payload of scan_progress.
type ScanProgress struct {
	ScanID   int64     `json:"scan_id" validate:"gt=0"`
	Status   ScanState `json:"status" validate:"required"`
	Progress float64   `json:"progress" validate:"gte=0"`
}

// ScanComplete is the payload of scan_complete.
type ScanComplete struct {
	ScanID     int64     `json:"scan_id" validate:"gt=0"`
	Status     ScanState `json:"status"`
	TotalFiles int64     `json:"total_files" validate:"gte=0"`
	TotalSize  int64     `json:"total_size" validate:"gte=0"`
}

// CleaningProgress is the payload of cleaning_progress.
type CleaningProgress struct {
	ScanID         int64   `json:"scan_id"`
	Progress       float64 `json:"progress" validate:"gte=0"`
	FilesProcessed int64   `json:"files_processed" validate:"gte=0"`
	CurrentFile    string  `json:"current_file"`
}

// CleaningComplete is the payload of cleaning_complete.
type CleaningComplete struct {
	ScanID       int64 `json:"scan_id"`
	Success      bool  `json:"success"`
	FilesDeleted int64 `json:"files_deleted" validate:"gte=0"`
	BytesFreed   int64 `json:"bytes_freed" validate:"gte=0"`
}

// SystemAlert is the payload of system_alert.
type SystemAlert struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message" validate:"required"`
}
