package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(Options{Level: tt.level, Format: "text"})
			assert.Equal(t, tt.want, l.logger.Level)
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	l := New(Options{Level: "info", Format: "json"})
	_, ok := l.logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestLogrusAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Format: "json"})
	l.logger.SetOutput(&buf)

	l.WithField(FieldComponent, "test").
		WithError(errors.New("boom")).
		Warn("prediction failed", F(FieldFile, "/tmp/a.png"), F(FieldCount, 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "prediction failed", entry["msg"])
	assert.Equal(t, "test", entry[FieldComponent])
	assert.Equal(t, "/tmp/a.png", entry[FieldFile])
	assert.Equal(t, float64(3), entry[FieldCount])
	assert.Equal(t, "boom", entry["error"])
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	l := New(Options{Level: "info", Format: "json", File: path, MaxSizeMB: 1})

	l.Info("model loaded", F(FieldDevice, "cpu"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "model loaded")
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	child := m.WithField(FieldRequestID, "r1")
	child.Info("served", F(FieldStatus, 200))
	m.WithError(errors.New("x")).Error("failed")

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.True(t, m.HasEntry("INFO", "served"))
	id, ok := entries[0].Field(FieldRequestID)
	assert.True(t, ok)
	assert.Equal(t, "r1", id)
	assert.EqualError(t, entries[1].Error, "x")
}
