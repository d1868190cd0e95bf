package service

import (
	"context"
	"fmt"

	"github.com/garyjia/nodue-clearance/internal/application/dispatcher"
	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/domain/entity"
	"github.com/garyjia/nodue-clearance/internal/domain/event"
)

// NotificationService turns workflow events into department and registrar
// messages
type NotificationService interface {
	// Register subscribes the service's handlers on d
	Register(d dispatcher.Dispatcher)

	HandleRequestCreated(ctx context.Context, evt *event.Event) error
	HandleStageApproved(ctx context.Context, evt *event.Event) error
	HandleRequestClosed(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notifier: notifier,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeRequestCreated, "notify_first_department", s.HandleRequestCreated)
	d.SubscribeNamed(event.TypeStageApproved, "notify_next_department", s.HandleStageApproved)
	d.SubscribeNamed(event.TypeRequestFullyApproved, "notify_registrar", s.HandleRequestClosed)
	d.SubscribeNamed(event.TypeRequestRejected, "notify_registrar", s.HandleRequestClosed)
}

// HandleRequestCreated tells the first department a request is waiting
func (s *notificationServiceImpl) HandleRequestCreated(ctx context.Context, evt *event.Event) error {
	dept := evt.GetPayloadString(event.KeyDepartment)
	if dept == "" {
		return nil
	}

	message := fmt.Sprintf("New clearance request %s from %s is awaiting %s review.",
		evt.GetPayloadString(event.KeyReferenceCode),
		applicant(evt),
		dept,
	)
	return s.notifyDepartment(ctx, evt, entity.Department(dept), message)
}

// HandleStageApproved tells the next department a request is waiting. The
// last approval has no next department and is left to HandleRequestClosed.
func (s *notificationServiceImpl) HandleStageApproved(ctx context.Context, evt *event.Event) error {
	next := evt.GetPayloadString(event.KeyNextDepartment)
	if next == "" {
		return nil
	}

	message := fmt.Sprintf("Clearance request %s from %s was approved by %s and is awaiting %s review (%d%% complete).",
		evt.GetPayloadString(event.KeyReferenceCode),
		applicant(evt),
		evt.GetPayloadString(event.KeyDepartment),
		next,
		evt.GetPayloadInt(event.KeyCompletion),
	)
	return s.notifyDepartment(ctx, evt, entity.Department(next), message)
}

// HandleRequestClosed reports a fully approved or rejected request to the registrar
func (s *notificationServiceImpl) HandleRequestClosed(ctx context.Context, evt *event.Event) error {
	var message string
	switch evt.Type {
	case event.TypeRequestFullyApproved:
		message = fmt.Sprintf("Clearance request %s from %s is fully approved. The certificate is ready.",
			evt.GetPayloadString(event.KeyReferenceCode),
			applicant(evt),
		)
	case event.TypeRequestRejected:
		message = fmt.Sprintf("Clearance request %s from %s was rejected by %s: %s",
			evt.GetPayloadString(event.KeyReferenceCode),
			applicant(evt),
			evt.GetPayloadString(event.KeyDepartment),
			evt.GetPayloadString(event.KeyRemarks),
		)
	default:
		return nil
	}

	if err := s.notifier.NotifyRegistrar(ctx, message); err != nil {
		s.logger.Error("Failed to notify registrar", "error", err, "request_id", evt.RequestID, "event", evt.Type)
		return fmt.Errorf("notify registrar: %w", err)
	}

	s.logger.Info("Registrar notified", "request_id", evt.RequestID, "event", evt.Type, "correlation_id", evt.CorrelationID)
	return nil
}

func (s *notificationServiceImpl) notifyDepartment(ctx context.Context, evt *event.Event, dept entity.Department, message string) error {
	if err := s.notifier.NotifyDepartment(ctx, dept, message); err != nil {
		s.logger.Error("Failed to notify department", "error", err, "request_id", evt.RequestID, "department", dept)
		return fmt.Errorf("notify department: %w", err)
	}

	s.logger.Info("Department notified", "request_id", evt.RequestID, "department", dept)
	return nil
}

func applicant(evt *event.Event) string {
	if name := evt.GetPayloadString(event.KeyApplicantName); name != "" {
		return name
	}
	return evt.GetPayloadString(event.KeyOwnerID)
}
