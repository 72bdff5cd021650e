// Package classify decides per pair of tracked people whether they are
// fighting.  A fight needs both high motion and close proximity, held for a
// number of consecutive frames, and ends only after the pair has stayed calm
// or apart for a further number of frames.
package classify
