// Package detect provides pose detectors for the analysis pipeline.
//
// ONNXPose runs a YOLOv8-pose model exported to ONNX through OpenCV DNN using
// a pool of networks so frames can be inferenced concurrently.  Replay serves
// detections previously saved by a Recorder, which allows re-running the
// behaviour analysis with different settings without inference.
package detect
