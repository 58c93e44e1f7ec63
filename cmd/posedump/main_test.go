package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slideYAML = `
name: slider
skeleton:
  joints:
    - name: root
    - name: tip
      parent: root
animations:
  - name: idle
    keyframes:
      - time: 0
      - time: 1
  - name: slide
    speed: 1
    duration: 20
    keyframes:
      - time: 0
      - time: 10
        joints:
          - translation: [10, 0, 0]
`

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slider.yaml")
	require.NoError(t, os.WriteFile(path, []byte(slideYAML), 0o600))
	return path
}

func TestRunJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-t", "4", "-anim", "slide", "-backend", "sorted", writeModel(t)}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var got poseDump
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "slider", got.Model)
	assert.Equal(t, "slide", got.Animation)
	assert.Equal(t, "sorted", got.Backend)
	assert.Equal(t, []string{"root", "tip"}, got.Joints)
	assert.InDelta(t, 4, got.LocalTime, 1e-5)
	require.Len(t, got.Transforms, 2)
	assert.InDelta(t, 4, got.Transforms[1].Col(3).X(), 1e-5)
}

func TestRunDefaultsToFirstAnimation(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{writeModel(t)}, &stdout, &stderr), stderr.String())

	var got poseDump
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "idle", got.Animation)
}

func TestRunSpew(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"-format", "spew", writeModel(t)}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "Transforms")
	assert.Contains(t, stdout.String(), `"slider"`)
}

func TestRunScene(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-anim", "slide", "-instances", "8", "-frames", "30", writeModel(t)}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "evaluated 240 poses (8 instances x 30 frames)")
}

func TestRunErrors(t *testing.T) {
	model := writeModel(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no file", nil, 2},
		{"unknown flag", []string{"-nope", model}, 2},
		{"unknown animation", []string{"-anim", "jump", model}, 1},
		{"unknown backend", []string{"-backend", "fast", model}, 1},
		{"unknown format", []string{"-format", "xml", model}, 1},
		{"missing file", []string{filepath.Join(t.TempDir(), "absent.yaml")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
			assert.NotEmpty(t, stderr.String())
		})
	}
}
