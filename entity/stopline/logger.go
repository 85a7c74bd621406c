package stopline

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "stopline")
