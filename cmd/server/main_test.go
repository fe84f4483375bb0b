package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashureev/honeypot/internal/config"
)

func TestShutdownTimeoutOutlastsModelCalls(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Timeout: 20 * time.Second}}
	assert.Equal(t, 45*time.Second, shutdownTimeout(cfg))

	cfg.LLM.Timeout = time.Second
	assert.Equal(t, 10*time.Second, shutdownTimeout(cfg))
}
