package types

import "time"

// Run status messages shown to callers.
const (
	MsgReady          = "Ready to scrape"
	MsgStarting       = "Starting scraping process..."
	MsgScraping       = "Scraping articles..."
	MsgNoArticles     = "No articles found"
	MsgStopRequested  = "Stop requested... finishing current task"
	MsgAlreadyRunning = "Scraping is already in progress!"
	MsgNotRunning     = "No scraping process is currently running."
)

// RunStatus is a snapshot of the run controller's state.
type RunStatus struct {
	IsRunning     bool      `json:"is_running"`
	Progress      int       `json:"progress"`
	Total         int       `json:"total"`
	Message       string    `json:"message"`
	StopRequested bool      `json:"stop_requested"`
	RunID         string    `json:"run_id,omitempty"`
	Processed     int       `json:"processed"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// StopSignal is polled at checkpoints to honour a cooperative stop request.
// It never interrupts work already in flight.
type StopSignal interface {
	StopRequested() bool
}

// NeverStop is a StopSignal that is never set.
var NeverStop StopSignal = neverStop{}

type neverStop struct{}

func (neverStop) StopRequested() bool { return false }

// StopFunc adapts a function to the StopSignal interface.
type StopFunc func() bool

// StopRequested calls f.
func (f StopFunc) StopRequested() bool { return f() }
