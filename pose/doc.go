// Package pose holds the detection data model shared between the pose
// detector, the tracker and the behavior analysis.  It has no dependency on
// OpenCV so the analysis packages can be used and tested without it.
package pose
