package light

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tldetector/entity"
)

var (
	_ entity.ILightStateSource = (*GroundTruthSource)(nil)
	_ entity.ILightArraySink   = (*GroundTruthSource)(nil)
)

// lightKey 信号灯识别键
// 说明：记录带ID时按ID识别，否则按截断取整后的位置识别
type lightKey struct {
	id   string
	x, y int
}

func (k lightKey) String() string {
	if k.id != "" {
		return k.id
	}
	return fmt.Sprintf("(%d, %d)", k.x, k.y)
}

func keyOf(r entity.LightRecord) lightKey {
	if r.ID != "" {
		return lightKey{id: r.ID}
	}
	return lightKey{x: int(r.Position.X), y: int(r.Position.Y)}
}

// lightBinding 信号灯与路点的绑定
type lightBinding struct {
	index int               // 最近路点索引
	state entity.LightState // 最近一次上报的状态
}

// GroundTruthSource 基于仿真器真值的信号灯数据源
// 功能：首次收到信号灯数组时把每个灯绑定到最近路点，此后只原地更新状态；采样时返回车辆前方最近且在生效距离内的灯的状态
// 说明：绑定只建立一次，假设每个灯的识别键在整个运行期间不变
type GroundTruthSource struct {
	ctx    entity.ITaskContext
	radius float64 // 生效距离

	bindings map[lightKey]*lightBinding // 识别键->绑定，nil表示尚未绑定
	byIndex  map[int]lightKey           // 路点索引->识别键
	sorted   []int                      // 已绑定路点索引（升序），用于向前查找
	skipped  uint64                     // 原地更新时无法识别的记录数
}

// NewGroundTruthSource 创建真值数据源
// 参数：ctx-任务上下文（读取生效距离）
func NewGroundTruthSource(ctx entity.ITaskContext) *GroundTruthSource {
	return &GroundTruthSource{
		ctx:     ctx,
		radius:  ctx.RuntimeConfig().All.Detector.RelevanceRadius,
		byIndex: make(map[int]lightKey),
		sorted:  make([]int, 0),
	}
}

func (s *GroundTruthSource) Name() string {
	return "ground_truth"
}

// UpdateLights 写入一批信号灯真值
// 功能：首次调用时建立绑定，之后只原地更新状态
// 参数：records-信号灯记录，track-当前路线
// 算法说明：
// 1. 没有路线时忽略
// 2. 尚未绑定：对每个灯用全量最近路点搜索求出路点索引，建立识别键->绑定与路点索引->识别键两张表，并排序路点索引
// 3. 已绑定：按识别键找到绑定并更新状态，未绑定的键跳过
// 说明：两个灯的识别键相同时后者覆盖前者
func (s *GroundTruthSource) UpdateLights(records []entity.LightRecord, track entity.IRouteTrack) {
	if !track.Loaded() {
		return
	}
	if s.bindings == nil {
		s.bind(records, track)
		return
	}
	for _, r := range records {
		key := keyOf(r)
		b, ok := s.bindings[key]
		if !ok {
			if s.skipped%100 == 0 {
				log.Debugf("light %v is not bound, skip (%d skipped)", key, s.skipped+1)
			}
			s.skipped++
			continue
		}
		b.state = r.State
	}
}

func (s *GroundTruthSource) bind(records []entity.LightRecord, track entity.IRouteTrack) {
	bindings := make(map[lightKey]*lightBinding, len(records))
	byIndex := make(map[int]lightKey, len(records))
	for _, r := range records {
		key := keyOf(r)
		index, err := track.Closest(r.Position)
		if err != nil {
			log.Errorf("bind light %v: %v", key, err)
			return
		}
		if old, ok := bindings[key]; ok {
			log.Warnf("lights collide on key %v (waypoints %d and %d), the later one wins", key, old.index, index)
		}
		bindings[key] = &lightBinding{index: index, state: r.State}
		byIndex[index] = key
	}
	s.bindings = bindings
	s.byIndex = byIndex
	s.sorted = lo.Keys(byIndex)
	slices.Sort(s.sorted)
	log.Infof("bound %d traffic lights to waypoints %v", len(bindings), s.sorted)
}

// Bound 已绑定的信号灯数量
func (s *GroundTruthSource) Bound() int {
	return len(s.bindings)
}

// Sample 采样
// 功能：在持锁时求出当前状态，返回常量采样函数
func (s *GroundTruthSource) Sample(track entity.IRouteTrack) entity.LightSample {
	state := s.current(track)
	return func(context.Context) entity.LightState {
		return state
	}
}

// current 车辆前方最近信号灯的状态
// 算法说明：
// 1. 尚未绑定或车辆索引无效：UNKNOWN
// 2. 查找严格大于车辆索引的最小已绑定路点索引，没有则UNKNOWN
// 3. 该路点不在当前路线范围内（路线已更换）：UNKNOWN
// 4. 该路点与车辆路点的距离超过生效距离：UNKNOWN（尚不可执行）
// 5. 否则返回该灯最近一次上报的状态
func (s *GroundTruthSource) current(track entity.IRouteTrack) entity.LightState {
	if s.bindings == nil {
		return entity.LightStateUnknown
	}
	vehicle, ok := track.Index()
	if !ok {
		return entity.LightStateUnknown
	}
	i := sort.SearchInts(s.sorted, vehicle+1)
	if i == len(s.sorted) {
		return entity.LightStateUnknown
	}
	index := s.sorted[i]
	if index >= track.Len() {
		return entity.LightStateUnknown
	}
	if track.Distance(index, vehicle) > s.radius {
		return entity.LightStateUnknown
	}
	return s.bindings[s.byIndex[index]].state
}
