package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"silent", logrus.PanicLevel},
		{"WARN", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"trace", logrus.TraceLevel},
		{"debug", logrus.DebugLevel},
		{"error", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevel_FallsBackToInfo(t *testing.T) {
	assert.Equal(t, logrus.TraceLevel, Level("trace"))
	assert.Equal(t, logrus.InfoLevel, Level("nonsense"))
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", false)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", true).WithField("ref", "x").Info("hello")
	assert.Contains(t, buf.String(), `"ref":"x"`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	e := logrus.NewEntry(logrus.New())
	assert.Same(t, e, OrNop(e))
}
