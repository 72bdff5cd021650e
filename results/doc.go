// Package results writes the outputs of an analysis run: the append only
// results.txt log, which stays readable when a run is cut short, and an
// optional SQLite index of the logged verdicts.
package results
