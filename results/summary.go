package results

import "fmt"

// Status is the outcome of a run
type Status string

const (
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// ParseStatus is the reverse of Status
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusComplete, StatusCancelled, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Summary describes a finished run
type Summary struct {
	RunID string
	// Frames is the number of frames processed
	Frames int
	// Tracks is the number of distinct tracks that reached Confirmed
	Tracks int
	// FightEvents is the number of Normal to Fight transitions
	FightEvents int
	// FirstFightFrame and LastFightFrame are the first and last frames with a
	// Fight verdict, zero when there was none
	FirstFightFrame int
	LastFightFrame  int
	// DetectorFailures is the number of frames the detector failed on
	DetectorFailures int
	Status           Status
}
