package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSensorElementEquality(t *testing.T) {
	a := SensorElement{SensorType: "Accelerometer", Listener: "com.example.face"}
	b := SensorElement{SensorType: "Accelerometer", Listener: "com.example.face"}
	c := SensorElement{SensorType: "Gyroscope", Listener: "com.example.face"}

	assert.Equal(t, a, a)
	assert.True(t, a == b)
	assert.True(t, b == a)
	assert.False(t, a == c)

	// map keys hash structurally, so equal elements collapse
	set := map[SensorElement]int{a: 1}
	set[b]++
	assert.Len(t, set, 1)
	assert.Equal(t, 2, set[a])
}

func TestSnapshotDeduplicates(t *testing.T) {
	s := NewSnapshot(
		SensorElement{"A", "x"},
		SensorElement{"A", "x"},
		SensorElement{"B", "y"},
	)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(SensorElement{"B", "y"}))
	assert.False(t, s.Contains(SensorElement{"B", "x"}))
}

func TestSnapshotDifference(t *testing.T) {
	before := NewSnapshot(SensorElement{"A", "x"}, SensorElement{"B", "y"})
	after := NewSnapshot(SensorElement{"A", "x"}, SensorElement{"C", "z"})

	assert.Equal(t, []SensorElement{{"C", "z"}}, after.Difference(before).Elements())
	assert.Equal(t, []SensorElement{{"B", "y"}}, before.Difference(after).Elements())
	assert.Zero(t, after.Difference(after).Len())

	// inputs are untouched
	assert.Equal(t, 2, before.Len())
	assert.Equal(t, 2, after.Len())
}

func TestSnapshotDifferenceListsEachElementOnce(t *testing.T) {
	before := NewSnapshot()
	after := NewSnapshot(SensorElement{"C", "z"}, SensorElement{"C", "z"}, SensorElement{"D", "z"})

	leaks := after.Difference(before).Elements()
	assert.Equal(t, []SensorElement{{"C", "z"}, {"D", "z"}}, leaks)
}

func TestSnapshotEqual(t *testing.T) {
	a := NewSnapshot(SensorElement{"A", "x"}, SensorElement{"B", "y"})
	b := NewSnapshot(SensorElement{"B", "y"}, SensorElement{"A", "x"})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewSnapshot(SensorElement{"A", "x"})))
	assert.True(t, Snapshot{}.Equal(NewSnapshot()))
}

func TestSnapshotElementsOrdering(t *testing.T) {
	s := NewSnapshot(
		SensorElement{"Gyroscope", "org.b"},
		SensorElement{"Accelerometer", "org.b"},
		SensorElement{"Light", "org.a"},
	)
	assert.Equal(t, []SensorElement{
		{"Light", "org.a"},
		{"Accelerometer", "org.b"},
		{"Gyroscope", "org.b"},
	}, s.Elements())
}

func TestListenerFilter(t *testing.T) {
	f := ListenerFilter{Prefixes: []string{"com.android", "com.google", ""}, Exact: []string{"ick"}}

	assert.True(t, f.Ignore(""))
	assert.True(t, f.Ignore("ick"))
	assert.True(t, f.Ignore("com.android.systemui"))
	assert.True(t, f.Ignore("com.google.android.gms"))
	assert.False(t, f.Ignore("wear.trombettonj.trombt1pearlfree"))
	assert.False(t, f.Ignore("icky.face"))
}

func TestSensorElementString(t *testing.T) {
	e := SensorElement{SensorType: "Step Counter", Listener: "org.face"}
	assert.Equal(t, "Sensor: Step Counter, Listener: org.face.", e.String())
}
