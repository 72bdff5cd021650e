// Package config provides the YAML configuration of the fight detection
// pipeline
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/swdee/go-fightdetect/behavior"
	"github.com/swdee/go-fightdetect/classify"
	"github.com/swdee/go-fightdetect/detect"
	"github.com/swdee/go-fightdetect/tracker"
	"github.com/swdee/go-fightdetect/video"
)

// Config represents the pipeline configuration
type Config struct {
	Detector   DetectorConfig   `yaml:"detector"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Behavior   BehaviorConfig   `yaml:"behavior"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DetectorConfig holds pose detector and look-ahead settings
type DetectorConfig struct {
	// Workers is the number of frames inferenced concurrently
	Workers int `yaml:"workers"`
	// Lookahead is the number of decoded frames queued ahead of tracking
	Lookahead int `yaml:"lookahead"`
	// Backend and Target select the OpenCV DNN backend, eg: default, cuda
	Backend      string  `yaml:"backend"`
	Target       string  `yaml:"target"`
	InputSize    int     `yaml:"input_size"`
	BoxThreshold float32 `yaml:"box_threshold"`
	NMSThreshold float32 `yaml:"nms_threshold"`
	MaxObjects   int     `yaml:"max_objects"`
}

// TrackerConfig holds identity tracking settings
type TrackerConfig struct {
	MinScore          float32 `yaml:"min_score"`
	HighScore         float32 `yaml:"high_score"`
	MatchThreshold    float32 `yaml:"match_threshold"`
	HitsToConfirm     int     `yaml:"hits_to_confirm"`
	MissesToLost      int     `yaml:"misses_to_lost"`
	MissesToTerminate int     `yaml:"misses_to_terminate"`
	TrailSize         int     `yaml:"trail_size"`
	UseKalman         bool    `yaml:"use_kalman"`
}

// BehaviorConfig holds feature window settings
type BehaviorConfig struct {
	WindowSize       int     `yaml:"window_size"`
	MinObservations  int     `yaml:"min_observations"`
	KeyPointMinScore float32 `yaml:"keypoint_min_score"`
}

// ClassifierConfig holds fight decision thresholds
type ClassifierConfig struct {
	MotionEnter    float64 `yaml:"motion_enter"`
	MotionExit     float64 `yaml:"motion_exit"`
	ProximityEnter float64 `yaml:"proximity_enter"`
	ProximityExit  float64 `yaml:"proximity_exit"`
	EnterFrames    int     `yaml:"enter_frames"`
	ExitFrames     int     `yaml:"exit_frames"`
}

// OutputConfig holds output settings
type OutputConfig struct {
	// VideoName is the annotated video file name in the output directory
	VideoName string `yaml:"video_name"`
	// Codec is the FourCC of the annotated video
	Codec string `yaml:"codec"`
	// EventStore enables the events.db SQLite index
	EventStore bool `yaml:"event_store"`
	// Font is an optional TTF file for the status banner
	Font     string  `yaml:"font"`
	FontSize float64 `yaml:"font_size"`
	// ProgressEvery is the number of frames between progress log entries
	ProgressEvery int `yaml:"progress_every"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration
func Default() *Config {

	tc := tracker.DefaultConfig()
	bc := behavior.DefaultConfig()
	cc := classify.DefaultConfig()
	pp := detect.DefaultPoseParams()

	return &Config{
		Detector: DetectorConfig{
			Workers:      2,
			Lookahead:    8,
			Backend:      "default",
			Target:       "cpu",
			InputSize:    pp.InputSize,
			BoxThreshold: pp.BoxThreshold,
			NMSThreshold: pp.NMSThreshold,
			MaxObjects:   pp.MaxObjects,
		},
		Tracker: TrackerConfig{
			MinScore:          tc.MinScore,
			HighScore:         tc.HighScore,
			MatchThreshold:    tc.MatchThreshold,
			HitsToConfirm:     tc.HitsToConfirm,
			MissesToLost:      tc.MissesToLost,
			MissesToTerminate: tc.MissesToTerminate,
			TrailSize:         tc.TrailSize,
			UseKalman:         tc.UseKalman,
		},
		Behavior: BehaviorConfig{
			WindowSize:       bc.WindowSize,
			MinObservations:  bc.MinObservations,
			KeyPointMinScore: bc.KeyPointMinScore,
		},
		Classifier: ClassifierConfig{
			MotionEnter:    cc.MotionEnter,
			MotionExit:     cc.MotionExit,
			ProximityEnter: cc.ProximityEnter,
			ProximityExit:  cc.ProximityExit,
			EnterFrames:    cc.EnterFrames,
			ExitFrames:     cc.ExitFrames,
		},
		Output: OutputConfig{
			VideoName:     "annotated.mp4",
			Codec:         video.DefaultCodec,
			EventStore:    true,
			FontSize:      22,
			ProgressEvery: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file.  Settings missing from the file
// keep their default value.
func Load(path string) (*Config, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := "# fightdetect configuration\n\n"
	data = append([]byte(header), data...)

	// atomic write
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {

	var errs []error

	if c.Detector.Workers < 1 {
		errs = append(errs, fmt.Errorf("detector.workers must be at least 1"))
	}

	if c.Detector.Lookahead < c.Detector.Workers {
		errs = append(errs, fmt.Errorf("detector.lookahead must be at least detector.workers"))
	}

	if c.Detector.InputSize < 32 || c.Detector.InputSize%32 != 0 {
		errs = append(errs, fmt.Errorf("detector.input_size must be a positive multiple of 32"))
	}

	if err := c.TrackerConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracker: %w", err))
	}

	if err := c.BehaviorConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("behavior: %w", err))
	}

	if err := c.ClassifierConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("classifier: %w", err))
	}

	if c.Output.SaveVideoName() == "" {
		errs = append(errs, fmt.Errorf("output.video_name must be set"))
	}

	if len(c.Output.Codec) != 4 {
		errs = append(errs, fmt.Errorf("output.codec must be a FourCC code"))
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json"))
	}

	return errors.Join(errs...)
}

// SaveVideoName returns the annotated video name without any directory
func (o OutputConfig) SaveVideoName() string {
	name := strings.TrimSpace(o.VideoName)
	if strings.ContainsAny(name, `/\`) {
		return ""
	}
	return name
}

// TrackerConfig returns the tracker policy
func (c *Config) TrackerConfig() tracker.Config {
	t := c.Tracker
	return tracker.Config{
		MinScore:          t.MinScore,
		HighScore:         t.HighScore,
		MatchThreshold:    t.MatchThreshold,
		HitsToConfirm:     t.HitsToConfirm,
		MissesToLost:      t.MissesToLost,
		MissesToTerminate: t.MissesToTerminate,
		TrailSize:         t.TrailSize,
		UseKalman:         t.UseKalman,
	}
}

// BehaviorConfig returns the feature window policy
func (c *Config) BehaviorConfig() behavior.Config {
	return behavior.Config{
		WindowSize:       c.Behavior.WindowSize,
		MinObservations:  c.Behavior.MinObservations,
		KeyPointMinScore: c.Behavior.KeyPointMinScore,
	}
}

// ClassifierConfig returns the fight decision thresholds
func (c *Config) ClassifierConfig() classify.Config {
	k := c.Classifier
	return classify.Config{
		MotionEnter:    k.MotionEnter,
		MotionExit:     k.MotionExit,
		ProximityEnter: k.ProximityEnter,
		ProximityExit:  k.ProximityExit,
		EnterFrames:    k.EnterFrames,
		ExitFrames:     k.ExitFrames,
	}
}

// ONNXConfig returns the detector settings for loading the given model
func (c *Config) ONNXConfig(model string) detect.ONNXConfig {
	d := c.Detector
	return detect.ONNXConfig{
		Model:   model,
		Workers: d.Workers,
		Backend: d.Backend,
		Target:  d.Target,
		Params: detect.PoseParams{
			InputSize:    d.InputSize,
			BoxThreshold: d.BoxThreshold,
			NMSThreshold: d.NMSThreshold,
			MaxObjects:   d.MaxObjects,
			KeyPoints:    detect.DefaultPoseParams().KeyPoints,
		},
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger returns a structured logger writing to w at the configured level
// and format
func (l LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {

	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}
