package logger_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/xhad/tradeqa/pkg/logger"
)

func TestInitLevels(t *testing.T) {
	defer logger.Init("info", "text")

	logger.Init("debug", "text")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	logger.Init("bogus", "text")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger.Init("info", "json")
	logger.SetOutput(&buf)
	defer logger.Init("info", "text")

	logger.New("retriever").Info("index built")

	assert.Contains(t, buf.String(), `"component":"retriever"`)
	assert.Contains(t, buf.String(), `"message":"index built"`)
}

func TestOr(t *testing.T) {
	entry := logrus.WithField("component", "custom")
	assert.Same(t, entry, logger.Or(entry, "other"))
	assert.Equal(t, "fallback", logger.Or(nil, "fallback").Data["component"])
}
