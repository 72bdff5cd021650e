package fightdetect

import (
	"github.com/swdee/go-fightdetect/detect"
	"github.com/swdee/go-fightdetect/results"
	"github.com/swdee/go-fightdetect/video"
)

type (
	// DecodeError is returned when the input video can not be read
	DecodeError = video.DecodeError
	// WriteError is returned when an output file can not be written
	WriteError = results.WriteError
	// DetectorError is a recoverable detector failure on a single frame.  Run
	// logs and counts them, it never returns one.
	DetectorError = detect.DetectorError
	// Summary are the statistics of a finished run
	Summary = results.Summary
	// Status is the outcome of a run
	Status = results.Status
)

const (
	StatusComplete  = results.StatusComplete
	StatusCancelled = results.StatusCancelled
	StatusFailed    = results.StatusFailed
)
