package sim

import (
	"errors"
	"math"
	"slices"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/utils/randengine"
	"gonum.org/v1/gonum/spatial/r2"
)

var misreportStates = []entity.LightState{
	entity.LightStateRed,
	entity.LightStateYellow,
	entity.LightStateGreen,
}

// WorldConfig 仿真世界参数
type WorldConfig struct {
	Speed     float64 `yaml:"speed"`     // 车辆速度
	Jitter    float64 `yaml:"jitter"`    // 位置噪声标准差（车辆与信号灯共用）
	Misreport float64 `yaml:"misreport"` // 信号灯状态误报概率
	Seed      uint64  `yaml:"seed"`      // 随机数种子
}

// World 开发用的真值仿真世界
// 功能：车辆沿循环路线匀速行驶，信号灯按固定相位切换，每一步输出带噪声的位姿与信号灯数组
type World struct {
	c WorldConfig

	waypoints []r2.Vec
	cum       []float64 // cum[i]为起点到路点i的路线长度，末项为闭合回起点的总长度
	lights    []*TrafficLight

	s   float64 // 车辆沿路线的行驶距离
	t   float64
	rng *randengine.Engine
}

// NewWorld 创建仿真世界
// 参数：waypoints-路点（首尾相连成环），lights-信号灯，c-参数
func NewWorld(waypoints []r2.Vec, lights []*TrafficLight, c WorldConfig) (*World, error) {
	if len(waypoints) < 2 {
		return nil, errors.New("world needs at least 2 waypoints")
	}
	cum := make([]float64, len(waypoints)+1)
	for i := range waypoints {
		next := waypoints[(i+1)%len(waypoints)]
		cum[i+1] = cum[i] + r2.Norm(r2.Sub(next, waypoints[i]))
	}
	if cum[len(waypoints)] <= 0 {
		return nil, errors.New("world route has zero length")
	}
	return &World{
		c:         c,
		waypoints: slices.Clone(waypoints),
		cum:       cum,
		lights:    lights,
		rng:       randengine.New(c.Seed),
	}, nil
}

// Route 路点列表
func (w *World) Route() []r2.Vec {
	return slices.Clone(w.waypoints)
}

// Length 路线总长度（含闭合段）
func (w *World) Length() float64 {
	return w.cum[len(w.cum)-1]
}

func (w *World) T() float64 {
	return w.t
}

// Position 车辆无噪声位置
func (w *World) Position() r2.Vec {
	i := sort.SearchFloat64s(w.cum, w.s)
	if i < len(w.cum) && w.cum[i] == w.s {
		return w.waypoints[i%len(w.waypoints)]
	}
	// w.cum[i-1] < s < w.cum[i]
	a, b := w.waypoints[i-1], w.waypoints[i%len(w.waypoints)]
	k := (w.s - w.cum[i-1]) / (w.cum[i] - w.cum[i-1])
	return r2.Add(a, r2.Scale(k, r2.Sub(b, a)))
}

// Step 推进一步
// 参数：dt-时间步长（秒）
// 返回：带噪声的车辆位姿，信号灯真值数组
func (w *World) Step(dt float64) (r2.Vec, []entity.LightRecord) {
	w.t += dt
	w.s = math.Mod(w.s+w.c.Speed*dt, w.Length())
	for _, l := range w.lights {
		l.Update(dt)
	}
	pose := r2.Add(w.Position(), w.noise())
	records := lo.Map(w.lights, func(l *TrafficLight, _ int) entity.LightRecord {
		state := l.State()
		if w.c.Misreport > 0 && w.rng.PTrue(w.c.Misreport) {
			state = misreportStates[w.rng.DiscreteDistribution([]float64{1, 1, 1})]
		}
		return entity.LightRecord{
			ID:       l.ID,
			Position: r2.Add(l.Position, w.noise()),
			State:    state,
		}
	})
	return pose, records
}

func (w *World) noise() r2.Vec {
	return r2.Vec{X: w.rng.Normal(w.c.Jitter), Y: w.rng.Normal(w.c.Jitter)}
}
