package profiler

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-pose/internal/logging"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProfiler(
		WithInterval(2*time.Second),
		WithLogger(logging.New(logging.Config{Output: &buf, Format: logging.FormatJSON})),
	)

	clock := p.lastTime
	p.now = func() time.Time { return clock }

	clock = clock.Add(time.Second)
	assert.False(t, p.Tick(10))
	assert.Empty(t, buf.String())

	clock = clock.Add(time.Second)
	assert.True(t, p.Tick(30))
	assert.Contains(t, buf.String(), `"frames_per_sec":1`)
	assert.Contains(t, buf.String(), `"poses_per_sec":20`)

	buf.Reset()
	clock = clock.Add(500 * time.Millisecond)
	assert.False(t, p.Tick(1), "counters restart after a report")
}

func TestDefaults(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogger(nil))
	assert.Equal(t, time.Second, p.Interval())
	assert.NotNil(t, p.logger)
}
