package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/swdee/go-fightdetect"
	"github.com/swdee/go-fightdetect/config"
	"github.com/swdee/go-fightdetect/detect"
)

func main() {
	os.Exit(run())
}

// run parses the flags and processes the videos, returning the exit code
func run() int {

	// read in cli flags
	modelFile := flag.String("m", "../data/yolov8m-pose.onnx", "YOLOv8-pose ONNX model file")
	vidFile := flag.String("v", "", "Video file to run fight detection on")
	outDir := flag.String("o", "output", "Directory to write the result log and annotated video to")
	cfgFile := flag.String("c", "", "YAML configuration file, built in defaults are used when not set")
	replayFile := flag.String("replay", "", "Use detections recorded to this YAML file instead of the model")
	recordFile := flag.String("record", "", "Record the model detections to this YAML file for replay")
	showVideo := flag.Bool("show", false, "Display the annotated video while processing")
	saveVideo := flag.Bool("save", true, "Save the annotated video to the output directory")
	watchDir := flag.String("watch", "", "Inbox directory, every video created in it is processed")
	writeCfg := flag.String("write-config", "", "Write the configuration in use to this file and exit")
	cpuCores := flag.String("cores", "", "Comma delimited list of CPU cores to run on, eg: 4,5,6,7 or 4-7")

	flag.Parse()

	cfg := config.Default()
	var err error

	if *cfgFile != "" {
		cfg, err = config.Load(*cfgFile)

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			return 1
		}
	}

	logger, err := cfg.Logging.NewLogger(os.Stderr)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return 1
	}

	slog.SetDefault(logger)

	if *writeCfg != "" {
		if err := cfg.Save(*writeCfg); err != nil {
			slog.Error("Failed to write configuration", "error", err)
			return 1
		}
		slog.Info("Configuration written", "path", *writeCfg)
		return 0
	}

	if err := checkInputs(*vidFile, *watchDir, *replayFile, *recordFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}

	if *cpuCores != "" {
		cores, err := parseCores(*cpuCores)

		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -cores: %v\n", err)
			return 2
		}

		if err := setCPUAffinity(cores); err != nil {
			slog.Error("Failed to set CPU affinity", "error", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// create the detector
	var model detect.Detector

	if *replayFile != "" {
		replay, err := detect.LoadReplay(*replayFile)

		if err != nil {
			slog.Error("Failed to load replay", "error", err)
			return 1
		}

		slog.Info("Replaying detections", "path", *replayFile, "frames", replay.Frames())
		model = replay

	} else {
		onnx, err := detect.NewONNXPose(cfg.ONNXConfig(*modelFile))

		if err != nil {
			slog.Error("Failed to load pose model", "model", *modelFile, "error", err)
			return 1
		}

		defer onnx.Close()
		model = onnx
	}

	var recorder *detect.Recorder

	if *recordFile != "" {
		recorder = detect.NewRecorder(model)
		model = recorder
	}

	opts := fightdetect.Options{
		ShowVideo: *showVideo,
		SaveVideo: *saveVideo,
		Config:    cfg,
		Logger:    logger,
	}

	if *watchDir != "" {
		err = watch(ctx, model, *watchDir, *outDir, opts)
	} else {
		err = analyse(ctx, model, *vidFile, *outDir, opts)
	}

	if recorder != nil {
		if saveErr := recorder.Save(*recordFile); saveErr != nil {
			slog.Error("Failed to save recorded detections", "error", saveErr)
		} else {
			slog.Info("Detections recorded", "path", *recordFile)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return 1
	}

	return 0
}

// checkInputs rejects flag combinations that can not be run.  Recordings
// are keyed by frame index so they belong to a single video.
func checkInputs(vidFile, watchDir, replayFile, recordFile string) error {
	switch {
	case vidFile == "" && watchDir == "":
		return errors.New("either -v or -watch is required")
	case vidFile != "" && watchDir != "":
		return errors.New("-v and -watch can not be used together")
	case recordFile != "" && watchDir != "":
		return errors.New("-record can only be used with a single video")
	case replayFile != "" && watchDir != "":
		return errors.New("-replay can only be used with a single video")
	case replayFile != "" && recordFile != "":
		return errors.New("-replay and -record can not be used together")
	}
	return nil
}

// analyse runs fight detection on a single video and prints the summary
func analyse(ctx context.Context, model detect.Detector, vidFile, outDir string,
	opts fightdetect.Options) error {

	sum, err := fightdetect.Run(ctx, model, vidFile, outDir, opts)

	var decErr *fightdetect.DecodeError
	var wrErr *fightdetect.WriteError

	switch {
	case errors.As(err, &decErr):
		slog.Error("Video could not be read", "path", decErr.Path, "error", decErr.Err)
		return err

	case errors.As(err, &wrErr):
		slog.Error("Output could not be written", "path", wrErr.Path, "error", wrErr.Err)
		return err

	case errors.Is(err, context.Canceled):
		slog.Warn("Run interrupted", "frames", sum.Frames)

	case err != nil:
		slog.Error("Run failed", "error", err)
		return err
	}

	fmt.Printf("Video: %s\n", vidFile)
	fmt.Printf("Run: %s (%s)\n", sum.RunID, sum.Status)
	fmt.Printf("Frames: %d, tracks: %d, detector failures: %d\n",
		sum.Frames, sum.Tracks, sum.DetectorFailures)

	if sum.FightEvents > 0 {
		fmt.Printf("Fights: %d, first at frame %d, last at frame %d\n",
			sum.FightEvents, sum.FirstFightFrame, sum.LastFightFrame)
	} else {
		fmt.Println("Fights: none")
	}

	return err
}
