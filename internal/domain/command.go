package domain

// CommandShutdown is the only command the remote store can issue.
const CommandShutdown = "shutdown"

// Command is the remote store's reply to a status push.
type Command struct {
	Cmd string `json:"cmd,omitempty"`
}

func (c Command) IsShutdown() bool {
	return c.Cmd == CommandShutdown
}
