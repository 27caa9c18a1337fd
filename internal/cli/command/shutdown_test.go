package command

import (
	"testing"
	"time"

	"github.com/yndnr/guardian/internal/infra/shutdown"
	"github.com/yndnr/guardian/internal/telemetry/logger"
)

func newTestShutdown(t *testing.T, log logger.Logger) *shutdown.Handler {
	t.Helper()
	h := shutdown.NewHandler(5*time.Second, log)
	t.Cleanup(h.Trigger)
	return h
}
