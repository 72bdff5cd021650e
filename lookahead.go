package fightdetect

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/swdee/go-fightdetect/detect"
	"github.com/swdee/go-fightdetect/pose"
	"github.com/swdee/go-fightdetect/video"
)

// frameSource is a stream of decoded frames, satisfied by *video.Source
type frameSource interface {
	Next() (video.Frame, error)
	FPS() float64
	Size() image.Point
	Path() string
	Close() error
}

// job is a frame travelling through the look-ahead queue
type job struct {
	frame video.Frame
	dets  []pose.Detection
	err   error
	// done is closed once dets and err are set
	done chan struct{}
}

// lookahead decodes frames ahead of the consumer and runs the detector on
// them with a fixed number of workers.  Results are handed back strictly in
// frame order.
type lookahead struct {
	queue  chan *job
	group  *errgroup.Group
	cancel context.CancelFunc
	// held is a job taken off the queue whose detection was still running
	// when the consumer gave up on it
	held *job
}

// startLookahead starts the reader and detector workers.  At most depth
// frames are decoded ahead of the consumer.
func startLookahead(ctx context.Context, src frameSource, model detect.Detector,
	workers, depth int, log *slog.Logger) *lookahead {

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	l := &lookahead{
		queue:  make(chan *job, depth),
		group:  g,
		cancel: cancel,
	}

	jobs := make(chan *job, depth)

	g.Go(func() error {
		defer close(l.queue)
		defer close(jobs)

		for {
			frame, err := src.Next()

			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Warn("Frame read failed, ending stream", "error", err)
				}
				return nil
			}

			j := &job{frame: frame, done: make(chan struct{})}

			select {
			case l.queue <- j:
			case <-gctx.Done():
				frame.Close()
				return nil
			}

			select {
			case jobs <- j:
			case <-gctx.Done():
				j.err = gctx.Err()
				close(j.done)
				return nil
			}
		}
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				j.dets, j.err = model.Detect(gctx, j.frame)
				close(j.done)
			}
			return nil
		})
	}

	return l
}

// next returns the next frame with its detections, io.EOF at the end of the
// stream or the context error once ctx is cancelled
func (l *lookahead) next(ctx context.Context) (*job, error) {

	var j *job

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case next, ok := <-l.queue:
		if !ok {
			return nil, io.EOF
		}
		j = next
	}

	select {
	case <-j.done:
		return j, nil

	case <-ctx.Done():
		l.held = j
		return nil, ctx.Err()
	}
}

// stop cancels the reader and workers, waits for them to exit and releases
// every frame not handed to the consumer
func (l *lookahead) stop() {

	l.cancel()
	l.group.Wait()

	if l.held != nil {
		l.held.frame.Close()
		l.held = nil
	}

	for j := range l.queue {
		j.frame.Close()
	}
}
