package config

import "time"

// MongoPath 指定MongoDB中停车线数据来源的配置
// 功能：定义停车线位置集合的连接信息，集合中每个文档形如{x: float, y: float}
type MongoPath struct {
	URI string `yaml:"uri"` // MongoDB连接字符串
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// GetDb 获取数据库名
func (p MongoPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p MongoPath) GetColl() string {
	return p.Col
}

// Enabled 是否配置了MongoDB数据源
func (p MongoPath) Enabled() bool {
	return p.URI != "" && p.DB != "" && p.Col != ""
}

// FilePath 文件来源
type FilePath struct {
	File string `yaml:"file,omitempty"` // 文件路径
}

// Input 指定检测器所有输入数据的配置项
// 功能：定义停车线几何位置的来源
// 说明：按 内联列表 > traffic_light_config文件 > MongoDB 的优先级选取
type Input struct {
	StopLinePositions  [][2]float64 `yaml:"stop_line_positions,omitempty"`  // 内联停车线位置[[x, y], ...]
	TrafficLightConfig FilePath     `yaml:"traffic_light_config,omitempty"` // 原有traffic_light_config格式的YAML文件
	Mongo              MongoPath    `yaml:"mongo,omitempty"`                // MongoDB集合
}

// Control 控制循环配置
// 功能：定义控制循环的频率与去抖参数
type Control struct {
	Rate                float64 `yaml:"rate"`                            // 控制循环频率（Hz）
	StateCountThreshold int     `yaml:"state_count_threshold,omitempty"` // 连续相同观测次数阈值
	Heartbeat           int64   `yaml:"heartbeat,omitempty"`             // 心跳日志间隔步数
}

// Detector 信号灯数据源配置
type Detector struct {
	GroundTruth     bool    `yaml:"ground_truth"`               // true使用仿真器真值，false使用相机图像分类
	RelevanceRadius float64 `yaml:"relevance_radius,omitempty"` // 信号灯生效距离
}

// Camera 相机内参
type Camera struct {
	ImageWidth  int `yaml:"image_width"`  // 图像宽度
	ImageHeight int `yaml:"image_height"` // 图像高度
}

// Classifier 外部分类服务配置
type Classifier struct {
	Addr    string        `yaml:"addr"`              // 分类服务地址，如http://localhost:51103
	Variant string        `yaml:"variant,omitempty"` // 分类模型变体（sim|site）
	Timeout time.Duration `yaml:"timeout,omitempty"` // 单次请求超时
}

// Config YAML配置文件的根结构
// 功能：定义整个检测器的配置结构
type Config struct {
	Control    Control    `yaml:"control"`              // 控制循环
	Detector   Detector   `yaml:"detector"`             // 信号灯数据源
	Input      Input      `yaml:"input"`                // 输入
	Camera     Camera     `yaml:"camera,omitempty"`     // 相机
	Classifier Classifier `yaml:"classifier,omitempty"` // 分类服务
}
