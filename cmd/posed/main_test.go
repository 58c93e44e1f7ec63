package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
)

const armYAML = `
name: arm
skeleton:
  joints:
    - name: shoulder
    - name: elbow
      parent: 0
animations:
  - name: still
    keyframes:
      - time: 0
      - time: 1
`

func TestRunServesUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(armYAML), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	var stderr bytes.Buffer
	done := make(chan int, 1)
	go func() { done <- run(ctx, []string{"-addr", "127.0.0.1:0", "-watch", path}, &stderr) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunErrors(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-bogus"}, &stderr))

	stderr.Reset()
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	assert.Equal(t, 1, run(context.Background(), []string{"-addr", "127.0.0.1:0", missing}, &stderr))
	assert.Contains(t, stderr.String(), "absent.yaml")
}

func TestReloadLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Output: &buf})
	a := animator.NewAnimator(animator.BackendTypeSorted)
	m := model.NewModel(model.WithName("arm"), model.WithSkeleton(&model.Skeleton{}))

	fn := reloadLogger(logger, a)
	fn("arm.yaml", m, m, nil)
	assert.Contains(t, buf.String(), "model reloaded")

	buf.Reset()
	fn("arm.yaml", m, nil, assert.AnError)
	assert.Contains(t, buf.String(), "model reload failed")
}
