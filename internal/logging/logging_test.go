package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	defer Setup("info", "text", os.Stderr)

	var buf bytes.Buffer
	Setup("debug", "json", &buf)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	log.WithField("stage", "load").Info("hello")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "load", entry["stage"])
}

func TestSetupUnknownLevel(t *testing.T) {
	defer Setup("info", "text", os.Stderr)

	Setup("loud", "text", nil)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
