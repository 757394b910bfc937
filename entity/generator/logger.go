package generator

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "generator")
