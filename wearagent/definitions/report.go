package definitions

import "time"

type Verdict string

const (
	VerdictClean       Verdict = "clean"
	VerdictLeak        Verdict = "leak"
	VerdictSetupFailed Verdict = "setup-failed"
	// VerdictCaptured ends a display run that saved both screenshots.
	VerdictCaptured Verdict = "captured"
)

// Stage is a state of the leak detection protocol.
type Stage string

const (
	StageIdle           Stage = "IDLE"
	StageSnapshotBefore Stage = "SNAPSHOT_BEFORE"
	StageInstall        Stage = "INSTALL"
	StageSelect         Stage = "SELECT"
	StageAct            Stage = "ACT"
	StageDeselect       Stage = "DESELECT"
	StageSnapshotAfter  Stage = "SNAPSHOT_AFTER"
	StageReport         Stage = "REPORT"
	StageCleanup        Stage = "CLEANUP"
	StageDone           Stage = "DONE"
)

type LeakReport struct {
	RunID        string          `json:"run_id"`
	Package      string          `json:"package"`
	Label        string          `json:"label"`
	Verdict      Verdict         `json:"verdict"`
	Leaks        []SensorElement `json:"leaks,omitempty"`
	BeforeCount  int             `json:"before_count"`
	AfterCount   int             `json:"after_count"`
	FailedStage  Stage           `json:"failed_stage,omitempty"`
	Error        string          `json:"error,omitempty"`
	CleanupError string          `json:"cleanup_error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	Elapsed      time.Duration   `json:"elapsed"`
}

type DisplayReport struct {
	RunID        string        `json:"run_id"`
	Package      string        `json:"package"`
	Label        string        `json:"label"`
	Verdict      Verdict       `json:"verdict"`
	Interactive  string        `json:"interactive,omitempty"`
	Ambient      string        `json:"ambient,omitempty"`
	FailedStage  Stage         `json:"failed_stage,omitempty"`
	Error        string        `json:"error,omitempty"`
	CleanupError string        `json:"cleanup_error,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Elapsed      time.Duration `json:"elapsed"`
}
