// Package video decodes input video files into ordered frames and encodes
// annotated frames back to a video file using OpenCV.
package video
