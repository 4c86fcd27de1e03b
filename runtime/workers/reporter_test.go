package workers

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

func TestReporter_Logs_Counters_On_Each_Tick(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reporter := NewReporter(log, 10*time.Millisecond, map[string]Counter{
		"control_connections": fixedCounter(3),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// When the reporter runs until the context ends
	req.NoError(reporter.Run(ctx))

	// Then the report carries the connection count
	req.Contains(buf.String(), "Health report")
	req.Contains(buf.String(), "control_connections=3")
}
