package agent

// State is a step of a turn.
type State int

const (
	Selecting State = iota
	Loading
	Projecting
	Answering
	ToolExecuting
	Done
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Loading:
		return "loading"
	case Projecting:
		return "projecting"
	case Answering:
		return "answering"
	case ToolExecuting:
		return "tool-executing"
	case Done:
		return "done"
	}
	return "unknown"
}
