package log

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// levelNames is what --log-output file=...,level=<name> accepts.
var levelNames = func() string {
	names := make([]string, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		names = append(names, l.String())
	}
	return strings.Join(names, ", ")
}()

func parseLevel(name string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q, use one of %s", name, levelNames)
	}
	return lvl, nil
}

// parseLevels returns the levels a hook has to fire for so that it records
// entries of the named severity and anything more severe.
func parseLevels(name string) ([]logrus.Level, error) {
	threshold, err := parseLevel(name)
	if err != nil {
		return nil, err
	}
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= threshold {
			levels = append(levels, l)
		}
	}
	return levels, nil
}
