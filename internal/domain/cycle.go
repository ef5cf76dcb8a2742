package domain

import "time"

// Cycle describes the outcome of a single poll/report cycle.
type Cycle struct {
	Seq       int64         `json:"seq"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
	Torrents  int           `json:"torrents"`
	Report    string        `json:"report,omitempty"`
	Command   string        `json:"command,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (c Cycle) Failed() bool {
	return c.Error != ""
}

// ShutdownRequested reports whether the remote store answered this cycle
// with the shutdown command.
func (c Cycle) ShutdownRequested() bool {
	return Command{Cmd: c.Command}.IsShutdown()
}
