package helper

import (
	"strings"

	"github.com/spance/wearprobe/wearagent/definitions"
)

const connectionMarker = "Connection Number:"

type scanState int

const (
	awaitMarker scanState = iota
	awaitListener
	awaitSensor
	readSensors
)

// ParseSensorRegistrations turns `dumpsys sensorservice` output into a Snapshot of third-party registrations.
//
// Each connection block is a "Connection Number:" line, optional preamble lines without a pipe
// column (such as "Operating Mode: NORMAL"), one line whose first pipe column is the listener,
// then one row per sensor whose first pipe column is the sensor type. A blank line or the
// next marker ends the block. Lines that fit none of these shapes are skipped and counted in degraded.
func ParseSensorRegistrations(text string, filter definitions.ListenerFilter) (snapshot definitions.Snapshot, degraded int) {
	var (
		found    []definitions.SensorElement
		state    = awaitMarker
		listener string
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		blank := strings.TrimSpace(line) == ""
		marker := strings.HasPrefix(strings.TrimSpace(line), connectionMarker)

		switch {
		case marker:
			if state == awaitListener || state == awaitSensor {
				degraded++
			}
			state = awaitListener
			listener = ""
			continue
		case blank:
			if state == awaitListener || state == awaitSensor {
				degraded++
			}
			state = awaitMarker
			continue
		}

		switch state {
		case awaitMarker:
			// outside a connection block
		case awaitListener:
			if !strings.Contains(line, "|") {
				// block preamble
				continue
			}
			listener = firstColumn(line)
			if listener == "" {
				degraded++
			}
			state = awaitSensor
		case awaitSensor, readSensors:
			sensorType := firstColumn(line)
			if sensorType == "" {
				degraded++
				continue
			}
			state = readSensors
			if filter.Ignore(listener) {
				continue
			}
			found = append(found, definitions.SensorElement{SensorType: sensorType, Listener: listener})
		}
	}
	if state == awaitListener || state == awaitSensor {
		degraded++
	}

	return definitions.NewSnapshot(found...), degraded
}

func firstColumn(line string) string {
	col, _, _ := strings.Cut(line, "|")
	return strings.TrimSpace(col)
}
