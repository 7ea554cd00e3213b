package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/port"
)

// LogGateway records notifications in the log instead of delivering them.
// Used when no webhook endpoints are configured.
type LogGateway struct {
	logger *zap.Logger
}

// NewLogGateway creates a log-only notification gateway
func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Notify logs the notification and reports success
func (g *LogGateway) Notify(ctx context.Context, roleGroup string, message string, runID string) error {
	g.logger.Info("Notification (log only)",
		zap.String("role_group", roleGroup),
		zap.String("run_id", runID),
		zap.String("message", message))
	return nil
}

// Verify interface compliance
var _ port.NotificationGateway = (*LogGateway)(nil)
