package main

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"go-event-hub/internal/hub"
)

func TestParseEvents(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{"Single", "order.created", []string{"order.created"}},
		{"Spaces", " a , b ,c", []string{"a", "b", "c"}},
		{"Empty entries", "a,,b,", []string{"a", "b"}},
		{"Blank", "  ", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseEvents(tc.in))
		})
	}
}

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Name: "relay-test", Level: hclog.Info, Output: &buf})
	h := hub.New()
	h.OnFunc("stuff", logEvent(logger, "stuff"))
	assert.NoError(t, h.Emit("stuff", 1, "two"))

	out := buf.String()
	assert.Contains(t, out, "[INFO]  relay-test: Event received: event=stuff")
	assert.Contains(t, out, "args=")
}
