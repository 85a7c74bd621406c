package debounce_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/entity/debounce"
)

const (
	red     = entity.LightStateRed
	green   = entity.LightStateGreen
	yellow  = entity.LightStateYellow
	unknown = entity.LightStateUnknown
)

type tick struct {
	stopLine int
	ok       bool
	raw      entity.LightState
}

// run 依次输入观测，返回每个周期是否发布
func run(d *debounce.Debouncer, ticks []tick) ([]bool, []entity.StopWaypoint) {
	published := make([]bool, len(ticks))
	events := make([]entity.StopWaypoint, 0)
	for i, t := range ticks {
		w, ok := d.Step(t.stopLine, t.ok, t.raw)
		published[i] = ok
		if ok {
			events = append(events, w)
		}
	}
	return published, events
}

func TestDebouncerInit(t *testing.T) {
	d := debounce.New(3)
	s := d.Snapshot()
	assert.Equal(t, unknown, s.State)
	assert.Equal(t, 0, s.Count)
	assert.False(t, s.HasPublished)
	assert.Equal(t, 3, d.Threshold())
}

func TestDebouncerNoStopLine(t *testing.T) {
	d := debounce.New(3)
	for i := 0; i < 10; i++ {
		_, ok := d.Step(0, false, red)
		assert.False(t, ok)
	}
	assert.Equal(t, debounce.Snapshot{State: unknown}, d.Snapshot())
}

func TestDebouncerPublishOnce(t *testing.T) {
	d := debounce.New(3)
	// 第1个RED替换候选状态，之后连续3次确认后的下一周期发布
	published, events := run(d, []tick{
		{2, true, red}, {2, true, red}, {2, true, red}, {2, true, red}, {2, true, red}, {2, true, red},
	})
	assert.Equal(t, []bool{false, false, false, true, false, false}, published)
	assert.Equal(t, []entity.StopWaypoint{{Index: 2, State: red}}, events)

	s := d.Snapshot()
	assert.Equal(t, 6, s.Count)
	assert.Equal(t, 2, s.LastStopLine)
	assert.True(t, s.HasPublished)
}

func TestDebouncerUnknownFromStart(t *testing.T) {
	d := debounce.New(3)
	// 初始候选状态就是UNKNOWN，不需要替换
	published, events := run(d, []tick{
		{5, true, unknown}, {5, true, unknown}, {5, true, unknown}, {5, true, unknown},
	})
	assert.Equal(t, []bool{false, false, false, true}, published)
	assert.Equal(t, []entity.StopWaypoint{{Index: 5, State: unknown}}, events)
}

func TestDebouncerRepublishOnNewStopLine(t *testing.T) {
	d := debounce.New(3)
	run(d, []tick{{2, true, red}, {2, true, red}, {2, true, red}, {2, true, red}, {2, true, red}})

	// 计数已超过阈值，停车线变化后立即重新发布，不需要新的确认窗口
	w, ok := d.Step(3, true, red)
	assert.True(t, ok)
	assert.Equal(t, entity.StopWaypoint{Index: 3, State: red}, w)

	_, ok = d.Step(3, true, red)
	assert.False(t, ok)
}

func TestDebouncerStateChangeRestarts(t *testing.T) {
	d := debounce.New(3)
	run(d, []tick{{2, true, red}, {2, true, red}, {2, true, red}, {2, true, red}})

	published, events := run(d, []tick{
		{2, true, green}, // 替换
		{2, true, red},   // 替换
		{2, true, red},
		{2, true, red},
		{2, true, red},    // 计数等于阈值，发布
		{2, true, yellow}, // 替换
	})
	assert.Equal(t, []bool{false, false, false, false, true, false}, published)
	assert.Equal(t, []entity.StopWaypoint{{Index: 2, State: red}}, events)
	assert.Equal(t, yellow, d.Snapshot().State)
	assert.Equal(t, 1, d.Snapshot().Count)
}

func TestDebouncerGapKeepsCount(t *testing.T) {
	d := debounce.New(3)
	run(d, []tick{{2, true, red}, {2, true, red}})
	// 没有停车线的周期不影响计数
	run(d, []tick{{0, false, green}, {0, false, green}})
	assert.Equal(t, 2, d.Snapshot().Count)
	assert.Equal(t, red, d.Snapshot().State)

	published, _ := run(d, []tick{{2, true, red}, {2, true, red}})
	assert.Equal(t, []bool{false, true}, published)
}

func TestDebouncerTargetChangeBeforeThreshold(t *testing.T) {
	d := debounce.New(3)
	// 尚未达到阈值时停车线变化，仍按计数等于阈值发布新的停车线
	published, events := run(d, []tick{{2, true, red}, {2, true, red}, {3, true, red}, {3, true, red}})
	assert.Equal(t, []bool{false, false, false, true}, published)
	assert.Equal(t, []entity.StopWaypoint{{Index: 3, State: red}}, events)
}

func TestDebouncerZeroThreshold(t *testing.T) {
	d := debounce.New(0)
	published, _ := run(d, []tick{{1, true, unknown}, {1, true, unknown}, {2, true, unknown}})
	assert.Equal(t, []bool{true, false, true}, published)
}
