package entity

import (
	"github.com/tsinghua-fib-lab/tldetector/clock"
	"github.com/tsinghua-fib-lab/tldetector/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	RuntimeConfig() *config.RuntimeConfig
}
