// Package notification turns order status-change events into front-of-house
// announcements.
package notification

import (
	"context"
	"fmt"
	"io"
	"os"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// MessageSource is the part of messaging.Consumer the subscriber needs
type MessageSource interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber handles notification messages
type Subscriber struct {
	source MessageSource
	logger *logger.Logger
	out    io.Writer
}

// NewSubscriber creates a new notification subscriber writing to stdout
func NewSubscriber(source MessageSource, log *logger.Logger) *Subscriber {
	return &Subscriber{
		source: source,
		logger: log,
		out:    os.Stdout,
	}
}

// Start consumes notifications until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.source.StartConsuming(ctx, s.handleNotification)

	s.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)
	if closeErr := s.source.Close(); closeErr != nil {
		s.logger.Error("graceful_shutdown", "Failed to close consumer", requestID, closeErr, nil)
	}

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("notification consumer failed: %w", err)
	}
	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}

// handleNotification processes incoming status update notifications
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.RequestID(ctx)

	var statusUpdate models.StatusUpdateMessage
	if err := messaging.ParseMessage(body, &statusUpdate); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return err
	}

	s.logger.Debug("notification_received", "Received status update notification", requestID, map[string]interface{}{
		"order_number": statusUpdate.OrderNumber,
		"new_status":   statusUpdate.NewStatus,
		"changed_by":   statusUpdate.ChangedBy,
	})

	if _, err := fmt.Fprintln(s.out, formatNotification(&statusUpdate)); err != nil {
		return fmt.Errorf("failed to display notification: %w", err)
	}

	s.logger.Info("notification_displayed", "Notification displayed to user", requestID, map[string]interface{}{
		"order_number": statusUpdate.OrderNumber,
		"old_status":   statusUpdate.OldStatus,
		"new_status":   statusUpdate.NewStatus,
		"changed_by":   statusUpdate.ChangedBy,
		"timestamp":    statusUpdate.Timestamp.Format(timestampLayout),
	})
	return nil
}

// formatNotification creates a human-readable notification message
func formatNotification(u *models.StatusUpdateMessage) string {
	timestamp := u.Timestamp.Format(timestampLayout)

	switch models.OrderStatus(u.NewStatus) {
	case models.StatusConfirmed:
		return fmt.Sprintf("💳 [%s] Order #%d is paid and sent to the kitchen.", timestamp, u.OrderNumber)
	case models.StatusPreparing:
		return fmt.Sprintf("🍳 [%s] Order #%d is now being prepared by %s.", timestamp, u.OrderNumber, u.ChangedBy)
	case models.StatusReady:
		return fmt.Sprintf("✅ [%s] Order #%d is ready for pickup/serving!", timestamp, u.OrderNumber)
	case models.StatusServed:
		return fmt.Sprintf("🎉 [%s] Order #%d has been served. Thank you for your business.", timestamp, u.OrderNumber)
	case models.StatusCancelled:
		return fmt.Sprintf("❌ [%s] Order #%d has been cancelled by %s.", timestamp, u.OrderNumber, u.ChangedBy)
	default:
		return fmt.Sprintf("📋 [%s] Order #%d status changed from '%s' to '%s' by %s.",
			timestamp, u.OrderNumber, u.OldStatus, u.NewStatus, u.ChangedBy)
	}
}
