/*
go-fightdetect flags fights between people in a video.

Each frame is passed through a pose detector, the detected people are tracked
across frames, a rolling window of their pose history is turned into motion
and proximity features, and every pair of tracked people is classified as
fighting or not with a hysteresis state machine.  The result is an annotated
copy of the video and a structured log of fight verdicts.

The pipeline is driven by Run.  The detector is pluggable, the detect package
provides a YOLOv8-pose ONNX backend running on OpenCV DNN and a replay backend
for detections recorded to file.

See cmd/fightdetect for the command line tool.
*/
package fightdetect
