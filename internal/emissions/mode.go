package emissions

import "fmt"

// Mode controls how a compute run treats activity records that already
// carry an estimate.
type Mode string

const (
	// ModeIncremental leaves existing estimates untouched and only
	// computes records that have none.
	ModeIncremental Mode = "incremental"

	// ModeReplace deletes existing estimates for the records in scope
	// and recomputes them from the current factor set.
	ModeReplace Mode = "replace"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIncremental:
		return ModeIncremental, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown compute mode %q", s)
	}
}
