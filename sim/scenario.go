package sim

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v2"
)

var stateNames = map[string]entity.LightState{
	"red":    entity.LightStateRed,
	"yellow": entity.LightStateYellow,
	"green":  entity.LightStateGreen,
}

// PhaseConfig 相位配置
type PhaseConfig struct {
	State    string  `yaml:"state"`    // red/yellow/green
	Duration float64 `yaml:"duration"` // 秒
}

// LightConfig 信号灯配置
type LightConfig struct {
	ID       string        `yaml:"id"`
	Position [2]float64    `yaml:"position"`
	Offset   int           `yaml:"offset"` // 起始相位
	Phases   []PhaseConfig `yaml:"phases"`
}

// Scenario 仿真场景
// 说明：corners为环形路线的折点，按spacing加密为路点；stop_lines为提供给检测器的停车线位置
type Scenario struct {
	Corners   [][2]float64  `yaml:"corners"`
	Spacing   float64       `yaml:"spacing"`
	StopLines [][2]float64  `yaml:"stop_lines"`
	Lights    []LightConfig `yaml:"lights"`
	World     WorldConfig   `yaml:"world"`
}

// ParseScenario 严格解析YAML场景
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return s, fmt.Errorf("scenario unmarshal: %w", err)
	}
	return s, nil
}

// DefaultScenario 默认场景
// 功能：400x300的矩形环路，三个路口各有一个信号灯与停车线
func DefaultScenario() Scenario {
	program := func(offset int) LightConfig {
		return LightConfig{
			Offset: offset,
			Phases: []PhaseConfig{
				{State: "green", Duration: 12},
				{State: "yellow", Duration: 3},
				{State: "red", Duration: 10},
			},
		}
	}
	lights := []LightConfig{program(0), program(1), program(2)}
	lights[0].ID, lights[0].Position = "tl-1", [2]float64{205, -8}
	lights[1].ID, lights[1].Position = "tl-2", [2]float64{408, 155}
	lights[2].ID, lights[2].Position = "tl-3", [2]float64{195, 308}
	return Scenario{
		Corners:   [][2]float64{{0, 0}, {400, 0}, {400, 300}, {0, 300}},
		Spacing:   5,
		StopLines: [][2]float64{{195, -3}, {403, 145}, {205, 303}},
		Lights:    lights,
		World:     WorldConfig{Speed: 10, Jitter: 0.3, Misreport: 0.05, Seed: 1},
	}
}

// Waypoints 将环路折点按间距加密为路点
func (s Scenario) Waypoints() []r2.Vec {
	corners := lo.Map(s.Corners, func(p [2]float64, _ int) r2.Vec { return r2.Vec{X: p[0], Y: p[1]} })
	if s.Spacing <= 0 || len(corners) < 2 {
		return corners
	}
	wps := make([]r2.Vec, 0)
	for i, a := range corners {
		b := corners[(i+1)%len(corners)]
		n := int(math.Ceil(r2.Norm(r2.Sub(b, a)) / s.Spacing))
		for k := 0; k < n; k++ {
			wps = append(wps, r2.Add(a, r2.Scale(float64(k)/float64(n), r2.Sub(b, a))))
		}
	}
	return wps
}

// Build 创建仿真世界
func (s Scenario) Build() (*World, error) {
	lights := make([]*TrafficLight, 0, len(s.Lights))
	for _, lc := range s.Lights {
		phases := make([]Phase, 0, len(lc.Phases))
		for _, pc := range lc.Phases {
			state, ok := stateNames[pc.State]
			if !ok {
				return nil, fmt.Errorf("light %s: unknown state %q", lc.ID, pc.State)
			}
			phases = append(phases, Phase{State: state, Duration: pc.Duration})
		}
		l, err := NewTrafficLight(lc.ID, r2.Vec{X: lc.Position[0], Y: lc.Position[1]}, phases, lc.Offset)
		if err != nil {
			return nil, fmt.Errorf("light %s: %w", lc.ID, err)
		}
		lights = append(lights, l)
	}
	return NewWorld(s.Waypoints(), lights, s.World)
}
