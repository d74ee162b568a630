package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aeropoint/academy-api/internal/models"
	"github.com/aeropoint/academy-api/pkg/jobs"
	"github.com/aeropoint/academy-api/pkg/mailer"
)

// NotificationConfig carries the sender addresses used per message category.
type NotificationConfig struct {
	AdmissionsFrom string
	SupportFrom    string
	AdminFrom      string
	AcademyName    string
}

// NotificationService sends transactional email through a background queue.
// Delivery is best effort. Failures are logged and retried by the queue but
// never surface to the request that triggered them.
type NotificationService struct {
	mailer mailer.Mailer
	queue  *jobs.Queue
	logger *zap.Logger
	config NotificationConfig
}

// NewNotificationService constructs a notification service. The returned
// service owns a mail queue that must be started with Start.
func NewNotificationService(m mailer.Mailer, logger *zap.Logger, cfg NotificationConfig, queueCfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AcademyName == "" {
		cfg.AcademyName = "AeroPoint Academy"
	}
	s := &NotificationService{mailer: m, logger: logger, config: cfg}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("mail", s.deliver, queueCfg)
	return s
}

// Start launches the mail queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains and stops the mail queue.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("mail job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.mailer.Send(ctx, msg)
}

func (s *NotificationService) enqueue(msg mailer.Message) {
	if s == nil || s.mailer == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "mail", Payload: msg}); err != nil {
		s.logger.Warn("failed to enqueue mail", zap.String("to", msg.ToAddr), zap.Error(err))
	}
}

// NotifyPaymentVerified informs a student that their payment proof was approved.
func (s *NotificationService) NotifyPaymentVerified(student *models.StudentDetail, fee *models.Fee, approvedAmount decimal.Decimal) {
	if student == nil || fee == nil {
		return
	}
	subject := fmt.Sprintf("Payment of %s %s verified", fee.Currency, approvedAmount.StringFixed(2))
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your payment of <strong>%s %s</strong> towards <em>%s</em> has been verified. The invoice now shows %s %s paid of %s %s.</p><p>%s</p>",
		student.FullName,
		fee.Currency, approvedAmount.StringFixed(2),
		fee.Description,
		fee.Currency, fee.Paid.StringFixed(2),
		fee.Currency, fee.Amount.StringFixed(2),
		s.config.AcademyName,
	)
	s.enqueue(mailer.Message{
		FromName: s.config.AcademyName,
		FromAddr: s.config.SupportFrom,
		ToName:   student.FullName,
		ToAddr:   student.Email,
		Subject:  subject,
		HTMLBody: body,
	})
}

// NotifyPaymentRejected informs a student their proof was rejected and why.
func (s *NotificationService) NotifyPaymentRejected(student *models.StudentDetail, fee *models.Fee, reason string) {
	if student == nil || fee == nil {
		return
	}
	if reason == "" {
		reason = "the submitted document could not be matched to a bank transaction"
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Your payment proof for <em>%s</em> was rejected: %s.</p><p>Please submit a new proof of payment.</p><p>%s</p>",
		student.FullName, fee.Description, reason, s.config.AcademyName,
	)
	s.enqueue(mailer.Message{
		FromName: s.config.AcademyName,
		FromAddr: s.config.SupportFrom,
		ToName:   student.FullName,
		ToAddr:   student.Email,
		Subject:  "Payment proof rejected",
		HTMLBody: body,
	})
}

// NotifyEnrollmentPromoted congratulates the student on becoming enrolled.
func (s *NotificationService) NotifyEnrollmentPromoted(student *models.StudentDetail) {
	if student == nil {
		return
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Congratulations! Your seat deposit has been received and you are now officially enrolled at %s.</p>",
		student.FullName, s.config.AcademyName,
	)
	s.enqueue(mailer.Message{
		FromName: s.config.AcademyName,
		FromAddr: s.config.AdmissionsFrom,
		ToName:   student.FullName,
		ToAddr:   student.Email,
		Subject:  "Welcome aboard: enrollment confirmed",
		HTMLBody: body,
	})
}

// NotifyCredentials mails initial login credentials to a newly created user.
func (s *NotificationService) NotifyCredentials(user *models.User, plainPassword string) {
	if user == nil {
		return
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>An account has been created for you at %s.</p><p>Email: %s<br>Temporary password: <code>%s</code></p><p>Please change your password after first login.</p>",
		user.FullName, s.config.AcademyName, user.Email, plainPassword,
	)
	s.enqueue(mailer.Message{
		FromName: s.config.AcademyName,
		FromAddr: s.config.AdminFrom,
		ToName:   user.FullName,
		ToAddr:   user.Email,
		Subject:  "Your account credentials",
		HTMLBody: body,
	})
}

// NotifyApplicationReceived acknowledges a new admissions application.
func (s *NotificationService) NotifyApplicationReceived(student *models.StudentDetail, application *models.Application) {
	if student == nil || application == nil {
		return
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>We received your application for the <em>%s</em> program and will be in touch shortly.</p><p>%s Admissions</p>",
		student.FullName, application.Program, s.config.AcademyName,
	)
	s.enqueue(mailer.Message{
		FromName: s.config.AcademyName + " Admissions",
		FromAddr: s.config.AdmissionsFrom,
		ToName:   student.FullName,
		ToAddr:   student.Email,
		Subject:  "Application received",
		HTMLBody: body,
	})
}

// NotifyEnquiryReceived acknowledges a public enquiry.
func (s *NotificationService) NotifyEnquiryReceived(enquiry *models.Enquiry) {
	if enquiry == nil {
		return
	}
	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Thank you for contacting %s. A member of our team will respond within two business days.</p>",
		enquiry.Name, s.config.AcademyName,
	)
	s.enqueue(mailer.Message{
		FromName: s.config.AcademyName,
		FromAddr: s.config.SupportFrom,
		ToName:   enquiry.Name,
		ToAddr:   enquiry.Email,
		Subject:  "We received your enquiry",
		HTMLBody: body,
	})
}
