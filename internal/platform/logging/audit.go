package logging

import (
	"context"

	"go.uber.org/zap"
)

// LogAuditEvent logs a structured audit event.
//
// Args:
//   - action: The action performed (e.g., "start", "apply", "generate")
//   - resourceType: The type of resource (e.g., "session")
//   - resourceID: The ID of the resource
//   - result: The result of the action ("success", "refused", "failure")
//   - details: Optional additional details
func LogAuditEvent(
	ctx context.Context,
	action, resourceType, resourceID, result string,
	details map[string]any,
) {
	LoggerFromContext(ctx).Info("Audit event",
		zap.String("audit.action", action),
		zap.String("audit.resource_type", resourceType),
		zap.String("audit.resource_id", resourceID),
		zap.String("audit.result", result),
		zap.Any("audit.details", details),
	)
}
