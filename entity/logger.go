package entity

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "entity")
