package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ovoskit/maclaunch/pkg/logger"
)

func TestConfigureLoggingInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger.SetLogOutput(&buf)
	t.Cleanup(func() {
		logger.SetLogOutput(os.Stderr)
		logger.SetLogLevel("info")
	})

	configureLogging("shout", "fmt")

	assert.Contains(t, buf.String(), "invalid log level")
}

func TestConfigureLoggingValidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger.SetLogOutput(&buf)
	t.Cleanup(func() {
		logger.SetLogOutput(os.Stderr)
		logger.SetLogLevel("info")
	})

	configureLogging("debug", "fmt")

	assert.Empty(t, buf.String())
}
