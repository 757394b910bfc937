package task

import "github.com/sirupsen/logrus"

// log 调度模块的日志记录器
var log = logrus.WithField("module", "scheduler")
