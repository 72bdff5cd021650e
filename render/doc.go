// Package render draws tracked people, their poses and fight verdicts onto
// video frames.
package render
