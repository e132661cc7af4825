package helper

import (
	"strings"
	"testing"

	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/stretchr/testify/assert"
)

var platformFilter = definitions.ListenerFilter{
	Prefixes: []string{"com.android", "com.google"},
	Exact:    []string{"ick"},
}

const sensorDump = `Sensor List:
0x00000001) Accelerometer | Vendor | ver: 1 | type: android.sensor.accelerometer(1)
Active sensors:
Connection Number: 0
wear.trombettonj.trombt1pearlfree | pid 1234 | uid 10087
Accelerometer | 0x00000001 | 66.667 Hz
Step Counter | 0x00000013 | 0 Hz

Connection Number: 1
com.google.android.gms.fitness | pid 900
Significant Motion | 0x00000011

Connection Number: 2
org.example.face | pid 2
Gyroscope | 0x00000004
`

func TestParseSensorRegistrations(t *testing.T) {
	snap, degraded := ParseSensorRegistrations(sensorDump, platformFilter)

	assert.Zero(t, degraded)
	assert.Equal(t, []definitions.SensorElement{
		{SensorType: "Gyroscope", Listener: "org.example.face"},
		{SensorType: "Accelerometer", Listener: "wear.trombettonj.trombt1pearlfree"},
		{SensorType: "Step Counter", Listener: "wear.trombettonj.trombt1pearlfree"},
	}, snap.Elements())
}

func TestParseEmptyDump(t *testing.T) {
	snap, degraded := ParseSensorRegistrations("", platformFilter)
	assert.Zero(t, snap.Len())
	assert.Zero(t, degraded)
}

func TestParseOnlyPlatformListeners(t *testing.T) {
	dump := `Connection Number: 0
com.android.systemui | pid 1
Light | 0x5

Connection Number: 1
com.google.android.wearable.app | pid 2
Accelerometer | 0x1
Connection Number: 2
ick | pid 3
Proximity | 0x8
`
	snap, degraded := ParseSensorRegistrations(dump, platformFilter)
	assert.Zero(t, snap.Len())
	assert.Zero(t, degraded)
}

// Device dumps put an operating mode line between the marker and the listener.
const deviceDump = "Connection Number: 0 \n" +
	"\tOperating Mode: NORMAL\n" +
	"\t com.google.android.wearable.app | WakeLockRefCount 0 | uid 10023\n" +
	"\t Accelerometer | status: active\n" +
	"Connection Number: 1 \n" +
	"\tOperating Mode: NORMAL\n" +
	"\t wear.trombettonj.trombt1pearlfree | WakeLockRefCount 0 | uid 10087\n" +
	"\t Step Counter | status: active\n"

func TestParseSkipsOperatingModeLine(t *testing.T) {
	snap, degraded := ParseSensorRegistrations(deviceDump, platformFilter)
	assert.Zero(t, degraded)
	assert.Equal(t, []definitions.SensorElement{
		{SensorType: "Step Counter", Listener: "wear.trombettonj.trombt1pearlfree"},
	}, snap.Elements())
}

func TestParsePlatformListenerAfterOperatingMode(t *testing.T) {
	dump := "Connection Number: 0 \n\tOperating Mode: NORMAL\n" +
		"\t com.google.android.wearable.app | WakeLockRefCount 0 | uid 10023\n" +
		"\t Accelerometer | status: active\n"
	snap, degraded := ParseSensorRegistrations(dump, platformFilter)
	assert.Zero(t, degraded)
	assert.Zero(t, snap.Len())
}

func TestParseMarkerResetsBlock(t *testing.T) {
	dump := "Connection Number: 0\norg.a | pid\nLight | x\nConnection Number: 1\norg.b | pid\nProximity | y\n"
	snap, _ := ParseSensorRegistrations(dump, platformFilter)
	assert.Equal(t, []definitions.SensorElement{
		{SensorType: "Light", Listener: "org.a"},
		{SensorType: "Proximity", Listener: "org.b"},
	}, snap.Elements())
}

func TestParseBlankLineEndsBlock(t *testing.T) {
	dump := "Connection Number: 0\norg.a | pid\nLight | x\n\nHeart Rate | stray row\n"
	snap, degraded := ParseSensorRegistrations(dump, platformFilter)
	assert.Equal(t, []definitions.SensorElement{{SensorType: "Light", Listener: "org.a"}}, snap.Elements())
	assert.Zero(t, degraded)
}

func TestParseDegradedInput(t *testing.T) {
	tests := []struct {
		name     string
		dump     string
		degraded int
		elements []definitions.SensorElement
	}{
		{
			name:     "marker then blank",
			dump:     "Connection Number: 3\n\n",
			degraded: 1,
		},
		{
			name:     "truncated after marker",
			dump:     "Connection Number: 3",
			degraded: 1,
		},
		{
			name:     "truncated after listener",
			dump:     "Connection Number: 3\norg.a | pid",
			degraded: 1,
		},
		{
			name:     "empty listener column",
			dump:     "Connection Number: 3\n   | pid 1\nLight | x\n",
			degraded: 1,
		},
		{
			name:     "empty sensor column",
			dump:     "Connection Number: 3\norg.a | pid\n | 0x1\nLight\n",
			degraded: 1,
			elements: []definitions.SensorElement{{SensorType: "Light", Listener: "org.a"}},
		},
		{
			name:     "windows line endings",
			dump:     "Connection Number: 0\r\norg.a | pid\r\nLight | x\r\n",
			elements: []definitions.SensorElement{{SensorType: "Light", Listener: "org.a"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, degraded := ParseSensorRegistrations(tt.dump, platformFilter)
			assert.Equal(t, tt.degraded, degraded)
			if tt.elements == nil {
				assert.Zero(t, snap.Len())
			} else {
				assert.Equal(t, tt.elements, snap.Elements())
			}
		})
	}
}

func TestParseFilterIsData(t *testing.T) {
	dump := "Connection Number: 0\ncom.samsung.health | pid\nHeart Rate | x\n"

	snap, _ := ParseSensorRegistrations(dump, platformFilter)
	assert.Equal(t, 1, snap.Len())

	snap, _ = ParseSensorRegistrations(dump, definitions.ListenerFilter{Prefixes: []string{"com.samsung"}})
	assert.Zero(t, snap.Len())
}

func FuzzParseSensorRegistrations(f *testing.F) {
	f.Add(sensorDump)
	f.Add(deviceDump)
	f.Add("")
	f.Add("Connection Number:")
	f.Add("Connection Number: 1\n|||\n|\n\n\n")
	f.Add("Connection Number: 0\r\norg.a | pid\r\n\r\nConnection Number:")
	f.Fuzz(func(t *testing.T, dump string) {
		snap, degraded := ParseSensorRegistrations(dump, platformFilter)
		if degraded < 0 {
			t.Fatalf("negative degraded count %d", degraded)
		}
		for _, e := range snap.Elements() {
			if e.SensorType == "" || platformFilter.Ignore(e.Listener) {
				t.Fatalf("unexpected element %v", e)
			}
			if strings.Contains(e.SensorType, "|") || strings.Contains(e.Listener, "|") {
				t.Fatalf("column separator leaked into %v", e)
			}
		}
	})
}
