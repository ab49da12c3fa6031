package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"telemetry-logger/models"
)

// AxisSource returns the sensor's current 3-axis reading. Read must not
// block and cannot fail; sources that lose their device keep returning the
// last good value.
type AxisSource interface {
	Read() models.AxisSample
}

// AxisSourceFunc adapts a plain function to AxisSource.
type AxisSourceFunc func() models.AxisSample

func (f AxisSourceFunc) Read() models.AxisSample { return f() }

var errAxisLine = errors.New("malformed axis line")

// ParseAxisLine parses "x y z" or "x,y,z" (optionally prefixed by a
// label such as "acc:") into an AxisSample.
func ParseAxisLine(line string) (models.AxisSample, error) {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, ':'); i >= 0 {
		line = line[i+1:]
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	if len(fields) != 3 {
		return models.AxisSample{}, fmt.Errorf("%w: %q", errAxisLine, line)
	}
	var v [3]int32
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return models.AxisSample{}, fmt.Errorf("%w: axis %d: %v", errAxisLine, i, err)
		}
		v[i] = int32(n)
	}
	return models.AxisSample{X: v[0], Y: v[1], Z: v[2]}, nil
}
