package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultRate                = 10.  // 默认控制循环频率（Hz）
	DefaultStateCountThreshold = 3    // 默认去抖阈值
	DefaultHeartbeat           = 100  // 默认心跳日志间隔步数
	DefaultRelevanceRadius     = 150. // 默认信号灯生效距离
	DefaultClassifierVariant   = "sim"
	DefaultClassifierTimeout   = time.Second
)

// RuntimeConfig 运行时配置
// 功能：存储补全默认值并通过校验后的配置，以及启动时一次性加载的停车线位置
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 控制循环配置

	StopLines [][2]float64 // 停车线几何位置（启动时加载，之后不变）
}

// Parse 解析YAML配置
// 功能：严格解析YAML，未知字段视为错误
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("config unmarshal: %w", err)
	}
	return c, nil
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：补全默认值并校验配置
// 参数：config-原始配置对象，stopLines-已加载的停车线位置
// 返回：运行时配置与错误
func NewRuntimeConfig(config Config, stopLines [][2]float64) (*RuntimeConfig, error) {
	if config.Control.Rate == 0 {
		config.Control.Rate = DefaultRate
	}
	if config.Control.StateCountThreshold == 0 {
		config.Control.StateCountThreshold = DefaultStateCountThreshold
	}
	if config.Control.Heartbeat == 0 {
		config.Control.Heartbeat = DefaultHeartbeat
	}
	if config.Detector.RelevanceRadius == 0 {
		config.Detector.RelevanceRadius = DefaultRelevanceRadius
	}
	if config.Classifier.Variant == "" {
		config.Classifier.Variant = DefaultClassifierVariant
	}
	if config.Classifier.Timeout == 0 {
		config.Classifier.Timeout = DefaultClassifierTimeout
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeConfig{
		All:       config,
		C:         config.Control,
		StopLines: stopLines,
	}, nil
}

// Validate 校验配置
func (c Config) Validate() error {
	var errs []error
	if c.Control.Rate < 0 {
		errs = append(errs, fmt.Errorf("control.rate must be > 0, got %v", c.Control.Rate))
	}
	if c.Control.StateCountThreshold < 0 {
		errs = append(errs, fmt.Errorf("control.state_count_threshold must be >= 0, got %d", c.Control.StateCountThreshold))
	}
	if c.Detector.RelevanceRadius < 0 {
		errs = append(errs, fmt.Errorf("detector.relevance_radius must be >= 0, got %v", c.Detector.RelevanceRadius))
	}
	if !c.Detector.GroundTruth {
		if c.Camera.ImageWidth <= 0 || c.Camera.ImageHeight <= 0 {
			errs = append(errs, errors.New("camera.image_width and camera.image_height are required by the image detector"))
		}
		if c.Classifier.Addr == "" {
			errs = append(errs, errors.New("classifier.addr is required by the image detector"))
		}
	}
	return errors.Join(errs...)
}
