package consts

const (
	// SSEDataPrefix starts every server-sent event frame.
	SSEDataPrefix = "data: "
	// SSEFrameEnd terminates a server-sent event frame.
	SSEFrameEnd = "\n\n"

	// DefaultEventsChannel is the Redis channel board events travel on when
	// several server processes share one board.
	DefaultEventsChannel = "board-events"

	// EventBoard is published after the board document is replaced.
	EventBoard = "board"
	// EventAll is the default for manual refreshes.
	EventAll = "all"
)
