// Package behavior accumulates rolling windows of pose history for tracked
// people and derives the motion and proximity features used to classify
// fights.
//
// Features of a track are only evaluable once its window holds enough
// observations.  Callers must skip classification for tracks that are not
// evaluable rather than treating them as calm.
package behavior
