package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
tracker:
  hits_to_confirm: 2
classifier:
  enter_frames: 5
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Tracker.HitsToConfirm = 2
	want.Classifier.EnterFrames = 5
	want.Logging = LoggingConfig{Level: "debug", Format: "json"}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 2, cfg.TrackerConfig().HitsToConfirm)
	assert.Equal(t, 5, cfg.ClassifierConfig().EnterFrames)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"lost after terminate", "tracker:\n  misses_to_lost: 40\n  misses_to_terminate: 30\n"},
		{"window below observations", "behavior:\n  window_size: 3\n  min_observations: 5\n"},
		{"exit stricter than enter", "classifier:\n  motion_exit: 0.5\n"},
		{"lookahead below workers", "detector:\n  workers: 4\n  lookahead: 2\n"},
		{"bad codec", "output:\n  codec: h264x\n"},
		{"video in subdirectory", "output:\n  video_name: out/annotated.mp4\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"not yaml", "tracker: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Output.Font = "/fonts/banner.ttf"
	cfg.Detector.Workers = 3

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestONNXConfig(t *testing.T) {
	cfg := Default()
	oc := cfg.ONNXConfig("model.onnx")

	assert.Equal(t, "model.onnx", oc.Model)
	assert.Equal(t, cfg.Detector.Workers, oc.Workers)
	assert.Equal(t, 17, oc.Params.KeyPoints)
	assert.Equal(t, 640, oc.Params.InputSize)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "frame", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"frame":3`)

	buf.Reset()
	logger, err = LoggingConfig{Level: "debug", Format: "text"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Debug("details", "component", "tracker")
	assert.True(t, strings.Contains(buf.String(), "component=tracker"))

	_, err = LoggingConfig{Level: "loud"}.NewLogger(&buf)
	assert.Error(t, err)
}
