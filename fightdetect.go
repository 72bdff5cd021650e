package fightdetect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
	"github.com/swdee/go-fightdetect/config"
	"github.com/swdee/go-fightdetect/detect"
	"github.com/swdee/go-fightdetect/render"
	"github.com/swdee/go-fightdetect/results"
	"github.com/swdee/go-fightdetect/tracker"
	"github.com/swdee/go-fightdetect/video"
)

// Options control the outputs of a run
type Options struct {
	// ShowVideo displays the annotated frames in a window while processing
	ShowVideo bool
	// SaveVideo writes the annotated frames to the output directory
	SaveVideo bool
	// Config holds the pipeline settings, the defaults are used when nil
	Config *config.Config
	// Logger receives progress and fight transitions, nothing is logged when
	// nil
	Logger *slog.Logger
}

// withDefaults fills in unset options and validates the configuration
func (o Options) withDefaults() (Options, error) {

	if o.Config == nil {
		o.Config = config.Default()
	}

	if err := o.Config.Validate(); err != nil {
		return o, fmt.Errorf("invalid config: %w", err)
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	return o, nil
}

// Run analyses the video at videoPath for fights using model to detect people
// in each frame.  The result log, and optionally the annotated video and
// event database, are written to outputDir.
//
// Errors are *DecodeError when the video can not be read, in which case no
// output is created, or *WriteError when an output can not be written.  When
// ctx is cancelled the outputs are finalised and ctx.Err() is returned along
// with the summary of the frames processed so far.
func Run(ctx context.Context, model detect.Detector, videoPath, outputDir string,
	opts Options) (Summary, error) {

	opts, err := opts.withDefaults()
	if err != nil {
		return Summary{}, err
	}

	if model == nil {
		return Summary{}, errors.New("no detector given")
	}

	src, err := video.Open(videoPath)
	if err != nil {
		return Summary{}, err
	}

	return run(ctx, model, src, outputDir, opts)
}

// pipeline is the state of a single run
type pipeline struct {
	opts  Options
	cfg   *config.Config
	log   *slog.Logger
	model detect.Detector
	src   frameSource
	meta  results.Meta

	tracker    *tracker.Tracker
	aggregator *behavior.Aggregator
	classifier *classify.Classifier
	annotator  *render.Annotator

	results *results.Log
	store   *results.Store
	encoder *video.Encoder
	display *video.Display

	summary Summary
	// confirmed are the ids of every track that reached Confirmed
	confirmed map[int]bool
}

// run processes the frames of src, it always closes src
func run(ctx context.Context, model detect.Detector, src frameSource,
	outputDir string, opts Options) (Summary, error) {

	defer src.Close()

	opts, err := opts.withDefaults()
	if err != nil {
		return Summary{}, err
	}

	cfg := opts.Config

	p := &pipeline{
		opts:  opts,
		cfg:   cfg,
		model: model,
		src:   src,
		meta: results.Meta{
			RunID:   uuid.NewString(),
			Video:   src.Path(),
			Started: time.Now(),
		},
		tracker:    tracker.New(cfg.TrackerConfig()),
		aggregator: behavior.NewAggregator(cfg.BehaviorConfig()),
		classifier: classify.New(cfg.ClassifierConfig()),
		confirmed:  make(map[int]bool),
	}

	p.log = opts.Logger.With("component", "pipeline", "run", p.meta.RunID)
	p.summary.RunID = p.meta.RunID

	if err := p.open(ctx, outputDir); err != nil {
		p.close(results.StatusFailed)
		return p.summary, err
	}

	p.log.Info("Run started", "video", p.meta.Video, "output", outputDir,
		"fps", src.FPS(), "size", src.Size(), "workers", cfg.Detector.Workers)

	la := startLookahead(ctx, src, model, cfg.Detector.Workers, cfg.Detector.Lookahead, p.log)

	runErr := p.loop(ctx, la)

	la.stop()

	status := results.StatusComplete

	switch {
	case runErr == nil:
	case errors.Is(runErr, errStopped):
		status = results.StatusCancelled
		runErr = nil
	case ctx.Err() != nil && errors.Is(runErr, ctx.Err()):
		status = results.StatusCancelled
	default:
		status = results.StatusFailed
	}

	if closeErr := p.close(status); closeErr != nil && runErr == nil {
		runErr = closeErr
		p.summary.Status = results.StatusFailed
	}

	p.log.Info("Run finished", "status", p.summary.Status, "frames", p.summary.Frames,
		"tracks", p.summary.Tracks, "events", p.summary.FightEvents,
		"detector_failures", p.summary.DetectorFailures)

	return p.summary, runErr
}

// errStopped is returned by the frame loop when the viewer closed the window
var errStopped = errors.New("stopped by viewer")

// open creates the outputs of the run
func (p *pipeline) open(ctx context.Context, outputDir string) error {

	var err error

	ropts := render.DefaultOptions()
	ropts.KeyPointMinScore = p.cfg.Behavior.KeyPointMinScore

	if p.cfg.Output.Font != "" && (p.opts.SaveVideo || p.opts.ShowVideo) {
		ropts.BannerFace, err = render.LoadFace(p.cfg.Output.Font, p.cfg.Output.FontSize)
		if err != nil {
			return fmt.Errorf("error initializing banner font: %w", err)
		}
	}

	p.annotator = render.NewAnnotator(ropts)

	p.results, err = results.Create(outputDir, p.meta)
	if err != nil {
		return err
	}

	if p.cfg.Output.EventStore {
		p.store, err = results.OpenStore(outputDir)
		if err != nil {
			return err
		}

		if err := p.store.BeginRun(ctx, p.meta); err != nil {
			return err
		}
	}

	if p.opts.SaveVideo {
		path := filepath.Join(outputDir, p.cfg.Output.SaveVideoName())

		p.encoder, err = video.CreateEncoder(path, p.cfg.Output.Codec, p.src.FPS(), p.src.Size())
		if err != nil {
			return &WriteError{Path: path, Op: "create encoder for", Err: err}
		}
	}

	if p.opts.ShowVideo {
		p.display = video.NewDisplay("fightdetect "+filepath.Base(p.meta.Video), p.src.FPS())
	}

	return nil
}

// loop consumes frames in order until the stream ends, ctx is cancelled or a
// fatal error occurs
func (p *pipeline) loop(ctx context.Context, la *lookahead) error {

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		j, err := la.next(ctx)

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		err = p.process(ctx, j)
		j.frame.Close()

		if err != nil {
			return err
		}
	}
}

// process tracks, classifies and outputs a single frame
func (p *pipeline) process(ctx context.Context, j *job) error {

	frame := j.frame
	dets := j.dets

	if j.err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		derr := &DetectorError{Frame: frame.Index, Err: j.err}
		p.summary.DetectorFailures++
		p.log.Warn("Detector failed, frame treated as empty", "frame", frame.Index, "error", derr)
		dets = nil
	}

	snaps, err := p.tracker.Update(dets, frame.Index)
	if err != nil {
		return fmt.Errorf("tracking frame %d: %w", frame.Index, err)
	}

	p.summary.Frames++

	for _, snap := range snaps {
		if snap.State != tracker.Confirmed || !snap.Matched(frame.Index) {
			continue
		}

		if !p.confirmed[snap.ID] {
			p.confirmed[snap.ID] = true
			p.summary.Tracks++
		}

		p.aggregator.Observe(snap, frame.Index)
	}

	verdicts := p.classifier.Classify(p.aggregator.Pairs(frame.Index), frame.Index)

	for _, snap := range snaps {
		if snap.State != tracker.Terminated {
			continue
		}

		p.log.Debug("Track terminated", "frame", frame.Index, "track", snap.ID, "age", snap.Age,
			"first_frame", snap.FirstFrame, "last_frame", snap.LastFrame)

		p.aggregator.Forget(snap.ID)
		verdicts = append(verdicts, p.classifier.Forget(snap.ID, frame.Index)...)
	}

	p.count(frame.Index, verdicts)

	if err := p.results.Append(frame.Index, frame.Timestamp, verdicts); err != nil {
		return err
	}

	if p.store != nil && p.hasEvents(verdicts) {
		if err := p.store.AddVerdicts(context.WithoutCancel(ctx), p.meta.RunID, verdicts); err != nil {
			return err
		}
	}

	if every := p.cfg.Output.ProgressEvery; every > 0 && frame.Index%every == 0 {
		p.log.Debug("Progress", "frame", frame.Index, "tracks", len(snaps),
			"fighting", len(p.classifier.Fighting()))
	}

	if p.encoder == nil && p.display == nil {
		return nil
	}

	img := p.annotator.Annotate(frame, snaps, verdicts)
	defer img.Close()

	if p.encoder != nil {
		if err := p.encoder.Write(img); err != nil {
			return &WriteError{Path: p.encoder.Path(), Op: "write frame to", Err: err}
		}
	}

	if p.display != nil && !p.display.Show(img) {
		return errStopped
	}

	return nil
}

// count updates the fight statistics and logs transitions
func (p *pipeline) count(frame int, verdicts []classify.Verdict) {

	for _, v := range verdicts {

		if v.Label == classify.Fight {
			p.summary.LastFightFrame = frame
		}

		switch v.Change {
		case classify.Start:
			p.summary.FightEvents++

			if p.summary.FirstFightFrame == 0 {
				p.summary.FirstFightFrame = frame
			}

			p.log.Info("Fight started", "frame", frame, "tracks", v.Pair.String(),
				"confidence", v.Confidence)

		case classify.End:
			p.log.Info("Fight ended", "frame", frame, "tracks", v.Pair.String())
		}
	}
}

// hasEvents reports whether any verdict would be recorded
func (p *pipeline) hasEvents(verdicts []classify.Verdict) bool {
	for _, v := range verdicts {
		if v.Label == classify.Fight || v.Change == classify.End {
			return true
		}
	}
	return false
}

// close finalises and releases every output.  A failed run discards the
// annotated video.
func (p *pipeline) close(status results.Status) error {

	p.summary.Status = status

	var errs []error

	if p.encoder != nil {
		if status == results.StatusFailed {
			errs = append(errs, p.encoder.Discard())
		} else if err := p.encoder.Close(); err != nil {
			errs = append(errs, &WriteError{Path: p.encoder.Path(), Op: "close", Err: err})
		}
	}

	if p.display != nil {
		errs = append(errs, p.display.Close())
	}

	if p.annotator != nil {
		errs = append(errs, p.annotator.Close())
	}

	if p.results != nil {
		errs = append(errs, p.results.Finalize(p.summary))
		p.log.Debug("Result log finalized", "path", p.results.Path(), "lines", p.results.Lines())
	}

	if p.store != nil {
		errs = append(errs, p.store.FinishRun(context.Background(), p.summary))
		errs = append(errs, p.store.Close())
	}

	return errors.Join(errs...)
}
