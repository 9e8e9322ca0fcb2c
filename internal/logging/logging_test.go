package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	l := New("debug", "text")
	assert.Equal(t, log.DebugLevel, l.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, l.Formatter)

	l = New("nonsense", "json")
	assert.Equal(t, log.InfoLevel, l.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, l.Formatter)
}
