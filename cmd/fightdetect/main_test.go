package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckInputs(t *testing.T) {
	tests := []struct {
		name                              string
		vid, watchDir, replay, recordFile string
		wantErr                           bool
	}{
		{name: "video", vid: "a.mp4"},
		{name: "video with replay", vid: "a.mp4", replay: "a.yaml"},
		{name: "video with record", vid: "a.mp4", recordFile: "a.yaml"},
		{name: "watch", watchDir: "inbox"},
		{name: "nothing", wantErr: true},
		{name: "video and watch", vid: "a.mp4", watchDir: "inbox", wantErr: true},
		{name: "watch with record", watchDir: "inbox", recordFile: "a.yaml", wantErr: true},
		{name: "watch with replay", watchDir: "inbox", replay: "a.yaml", wantErr: true},
		{name: "replay and record", vid: "a.mp4", replay: "a.yaml", recordFile: "b.yaml", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := checkInputs(tc.vid, tc.watchDir, tc.replay, tc.recordFile)

			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
