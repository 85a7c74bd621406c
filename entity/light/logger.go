package light

import "github.com/sirupsen/logrus"

// log 信号灯数据源模块的日志记录器
var log = logrus.WithField("module", "light")
