package detect

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/swdee/go-fightdetect/pose"
	"github.com/swdee/go-fightdetect/video"
)

// recordedPerson is the YAML form of a single detection
type recordedPerson struct {
	// Box is left, top, right, bottom
	Box   [4]float32 `yaml:"box,flow"`
	Score float32    `yaml:"score"`
	// KeyPoints are x, y, score triples
	KeyPoints [][3]float32 `yaml:"keypoints,flow"`
}

// recording is the YAML document of detections keyed by frame index
type recording struct {
	Frames map[int][]recordedPerson `yaml:"frames"`
}

// Replay is a Detector returning detections previously recorded to a YAML
// file.  Frames missing from the recording have no detections.
type Replay struct {
	frames map[int][]recordedPerson
	idGen  *pose.IDGenerator
}

// LoadReplay reads a recording written by Recorder.Save
func LoadReplay(path string) (*Replay, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}

	var rec recording

	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse recording %s: %w", path, err)
	}

	for frame, people := range rec.Frames {
		for i, p := range people {
			if p.Box[2] < p.Box[0] || p.Box[3] < p.Box[1] {
				return nil, fmt.Errorf("frame %d person %d has an inverted box", frame, i)
			}
		}
	}

	return &Replay{
		frames: rec.Frames,
		idGen:  pose.NewIDGenerator(),
	}, nil
}

// Frames returns the number of frames in the recording
func (r *Replay) Frames() int {
	return len(r.frames)
}

// Detect returns the recorded detections for the frame index
func (r *Replay) Detect(ctx context.Context, frame video.Frame) ([]pose.Detection, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	people := r.frames[frame.Index]
	out := make([]pose.Detection, 0, len(people))

	for _, p := range people {

		kps := make([]pose.KeyPoint, len(p.KeyPoints))
		for i, kp := range p.KeyPoints {
			kps[i] = pose.KeyPoint{X: kp[0], Y: kp[1], Score: kp[2]}
		}

		out = append(out, pose.Detection{
			ID:        r.idGen.GetNext(),
			Box:       pose.BoxRect{Left: p.Box[0], Top: p.Box[1], Right: p.Box[2], Bottom: p.Box[3]},
			Score:     p.Score,
			KeyPoints: kps,
		})
	}

	return out, nil
}

// Recorder wraps a Detector and keeps every detection it returns so they can
// be saved for replay
type Recorder struct {
	next   Detector
	mu     sync.Mutex
	frames map[int][]recordedPerson
}

// NewRecorder returns a Recorder around the given detector
func NewRecorder(next Detector) *Recorder {
	return &Recorder{
		next:   next,
		frames: make(map[int][]recordedPerson),
	}
}

// Detect calls the wrapped detector and records its result
func (r *Recorder) Detect(ctx context.Context, frame video.Frame) ([]pose.Detection, error) {

	dets, err := r.next.Detect(ctx, frame)

	if err != nil {
		return dets, err
	}

	people := make([]recordedPerson, 0, len(dets))

	for _, d := range dets {
		kps := make([][3]float32, len(d.KeyPoints))
		for i, kp := range d.KeyPoints {
			kps[i] = [3]float32{kp.X, kp.Y, kp.Score}
		}

		people = append(people, recordedPerson{
			Box:       [4]float32{d.Box.Left, d.Box.Top, d.Box.Right, d.Box.Bottom},
			Score:     d.Score,
			KeyPoints: kps,
		})
	}

	r.mu.Lock()
	r.frames[frame.Index] = people
	r.mu.Unlock()

	return dets, nil
}

// Save writes the recorded detections to path as YAML
func (r *Recorder) Save(path string) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	// keep empty frames out of the file, yaml orders the keys
	frames := make(map[int][]recordedPerson, len(r.frames))

	for k, v := range r.frames {
		if len(v) > 0 {
			frames[k] = v
		}
	}

	data, err := yaml.Marshal(recording{Frames: frames})

	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}

	return nil
}
