// internal/services/notification.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/metrics"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

// Error codes recorded on failed notification results.
const (
	CodeRecipientMissing      = "recipient-missing"
	CodeRecipientLookupFailed = "recipient-lookup-failed"
	CodeEmailNotConfigured    = "email-not-configured"
	CodeSMSNotConfigured      = "sms-not-configured"
	CodeRenderFailed          = "render-failed"
	CodeDeliveryFailed        = "delivery-failed"
	CodeUnsupportedChannel    = "unsupported-channel"
)

type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type ApplicationReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Application, error)
}

// ContactResolver looks up the owner of an application.
type ContactResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type DeliveryRecorder interface {
	Record(ctx context.Context, deliveries []models.NotificationDelivery) error
}

// StatusChangeEvent describes a committed transition.
type StatusChangeEvent struct {
	ApplicationID uuid.UUID `json:"application_id" validate:"required"`
	FromStatus    string    `json:"from_status,omitempty"`
	ToStatus      string    `json:"to_status" validate:"required"`
	Note          string    `json:"note,omitempty"`
	StatusDetail  string    `json:"status_detail,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

// EventFromTransition builds the event for a committed transition.
func EventFromTransition(res *TransitionResult) StatusChangeEvent {
	ev := StatusChangeEvent{
		ApplicationID: res.Application.ID,
		ToStatus:      string(res.Entry.ToStatus),
		Note:          res.Entry.Note,
		StatusDetail:  res.Application.StatusDetail,
		ChangedAt:     res.Entry.ChangedAt,
	}
	if res.Entry.FromStatus != nil {
		ev.FromStatus = string(*res.Entry.FromStatus)
	}
	return ev
}

type NotificationResult struct {
	Channel   workflow.Channel `json:"channel"`
	Target    string           `json:"target,omitempty"`
	Success   bool             `json:"success"`
	Attempts  int              `json:"attempts"`
	ErrorCode string           `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// DispatchSucceeded reports the overall outcome of a dispatch: any success
// wins, and failures of the ops channel alone never count as failure.
func DispatchSucceeded(results []NotificationResult) bool {
	customerFailed := false
	for _, r := range results {
		if r.Success {
			return true
		}
		if r.Channel != workflow.ChannelOpsEmail {
			customerFailed = true
		}
	}
	return !customerFailed
}

type RetryPolicy struct {
	MaxAttempts    uint64
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

func RetryPolicyFromConfig(cfg config.NotificationConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		AttemptTimeout: cfg.AttemptTimeout,
	}
}

type Dispatcher struct {
	apps       ApplicationReader
	contacts   ContactResolver
	email      EmailSender
	sms        SMSSender
	deliveries DeliveryRecorder
	opsEmail   string
	portalURL  string
	adminURL   string
	policy     RetryPolicy
	log        logrus.FieldLogger
}

type DispatcherOptions struct {
	Email      EmailSender
	SMS        SMSSender
	Deliveries DeliveryRecorder
	OpsEmail   string
	PortalURL  string
	Policy     RetryPolicy
}

// NewDispatcher builds a dispatcher. Nil senders mark their channel as not configured.
func NewDispatcher(apps ApplicationReader, contacts ContactResolver, opts DispatcherOptions, log logrus.FieldLogger) *Dispatcher {
	policy := opts.Policy
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 400 * time.Millisecond
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = 10 * time.Second
	}

	portal := strings.TrimRight(opts.PortalURL, "/")
	return &Dispatcher{
		apps:       apps,
		contacts:   contacts,
		email:      opts.Email,
		sms:        opts.SMS,
		deliveries: opts.Deliveries,
		opsEmail:   opts.OpsEmail,
		portalURL:  portal,
		adminURL:   portal + "/admin",
		policy:     policy,
		log:        log,
	}
}

// Dispatch sends the notifications configured for the event's target
// status. Channel failures are reported in the results, never as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, ev StatusChangeEvent) ([]NotificationResult, error) {
	status, err := workflow.ParseStatus(ev.ToStatus)
	if err != nil {
		return nil, &UnsupportedStatusError{Status: ev.ToStatus}
	}

	app, err := d.apps.Get(ctx, ev.ApplicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}

	user, lookupErr := d.contacts.Get(ctx, app.UserID)
	if lookupErr != nil {
		user = nil
		if !errors.Is(lookupErr, repository.ErrNotFound) {
			d.log.WithError(lookupErr).WithField("application_id", app.ID).Warn("Failed to resolve notification recipient")
		}
	}

	tmpl := workflow.Template(status)
	data := d.templateData(app, user, status, ev)
	logger := d.log.WithFields(logrus.Fields{
		"application_id": app.ID,
		"status":         status,
	})

	results := make([]NotificationResult, 0, len(tmpl.Channels)+1)
	for _, channel := range tmpl.Channels {
		var result NotificationResult
		switch {
		case user == nil:
			result = NotificationResult{Channel: channel, ErrorCode: CodeRecipientMissing}
			if lookupErr != nil && !errors.Is(lookupErr, repository.ErrNotFound) {
				result.ErrorCode = CodeRecipientLookupFailed
				result.Error = lookupErr.Error()
			}
		case channel == workflow.ChannelEmail:
			result = d.sendCustomerEmail(ctx, user, tmpl, data)
		case channel == workflow.ChannelSMS:
			result = d.sendCustomerSMS(ctx, user, tmpl, data)
		default:
			result = NotificationResult{Channel: channel, ErrorCode: CodeUnsupportedChannel}
		}
		results = append(results, result)
	}

	if tmpl.EscalateToOps && d.opsEmail != "" {
		results = append(results, d.escalate(ctx, data))
	}

	for _, r := range results {
		outcome := models.DeliveryOutcomeSent
		if !r.Success {
			outcome = models.DeliveryOutcomeFailed
		}
		metrics.NotificationDeliveries.WithLabelValues(string(r.Channel), string(outcome)).Inc()
		metrics.NotificationAttempts.Observe(float64(r.Attempts))
		logger.WithFields(logrus.Fields{
			"channel":    r.Channel,
			"success":    r.Success,
			"attempts":   r.Attempts,
			"error_code": r.ErrorCode,
		}).Info("Notification processed")
	}

	d.record(ctx, app.ID, status, results)
	return results, nil
}

func (d *Dispatcher) sendCustomerEmail(ctx context.Context, user *models.User, tmpl workflow.NotificationTemplate, data map[string]string) NotificationResult {
	result := NotificationResult{Channel: workflow.ChannelEmail, Target: user.Email}
	if user.Email == "" {
		result.ErrorCode = CodeRecipientMissing
		return result
	}
	if d.email == nil {
		result.ErrorCode = CodeEmailNotConfigured
		return result
	}

	subject, err := renderText(tmpl.EmailSubject, data)
	if err != nil {
		return renderFailure(result, err)
	}
	body, err := renderHTML(tmpl.EmailBody, data)
	if err != nil {
		return renderFailure(result, err)
	}

	msg := EmailMessage{To: user.Email, Subject: subject, HTMLBody: body}
	return d.attempt(ctx, result, func(ctx context.Context) error {
		return d.email.SendEmail(ctx, msg)
	})
}

func (d *Dispatcher) sendCustomerSMS(ctx context.Context, user *models.User, tmpl workflow.NotificationTemplate, data map[string]string) NotificationResult {
	result := NotificationResult{Channel: workflow.ChannelSMS, Target: user.Phone}
	if user.Phone == "" {
		result.ErrorCode = CodeRecipientMissing
		return result
	}
	if d.sms == nil {
		result.ErrorCode = CodeSMSNotConfigured
		return result
	}

	body, err := renderText(tmpl.SMSBody, data)
	if err != nil {
		return renderFailure(result, err)
	}

	return d.attempt(ctx, result, func(ctx context.Context) error {
		return d.sms.SendSMS(ctx, user.Phone, body)
	})
}

const opsSubject = `[ops] {{.StatusLabel}}: {{.BrandName}} ({{.ManagementNumber}})`

const opsBody = `Application status changed.

Status:            {{.StatusLabel}} ({{.Status}})
Brand:             {{.BrandName}}
Management number: {{.ManagementNumber}}
Changed at:        {{.ChangedAt}}
Note:              {{.Note}}
Detail:            {{.StatusDetail}}

{{.AdminURL}}
`

func (d *Dispatcher) escalate(ctx context.Context, data map[string]string) NotificationResult {
	result := NotificationResult{Channel: workflow.ChannelOpsEmail, Target: d.opsEmail}
	if d.email == nil {
		result.ErrorCode = CodeEmailNotConfigured
		return result
	}

	subject, err := renderText(opsSubject, data)
	if err != nil {
		return renderFailure(result, err)
	}
	body, err := renderText(opsBody, data)
	if err != nil {
		return renderFailure(result, err)
	}

	msg := EmailMessage{To: d.opsEmail, Subject: subject, TextBody: body}
	return d.attempt(ctx, result, func(ctx context.Context) error {
		return d.email.SendEmail(ctx, msg)
	})
}

// attempt runs send with exponential backoff. Every attempt gets its own
// timeout so a hung provider cannot stall the dispatch.
func (d *Dispatcher) attempt(ctx context.Context, result NotificationResult, send func(context.Context) error) NotificationResult {
	backoff := retry.WithMaxRetries(d.policy.MaxAttempts-1, retry.NewExponential(d.policy.BaseDelay))

	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, d.policy.AttemptTimeout)
		defer cancel()

		if err := send(attemptCtx); err != nil {
			lastErr = err
			d.log.WithError(err).WithFields(logrus.Fields{
				"channel": result.Channel,
				"attempt": result.Attempts,
			}).Warn("Notification attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		result.ErrorCode = CodeDeliveryFailed
		result.Error = lastErr.Error()
		return result
	}

	result.Success = true
	return result
}

func (d *Dispatcher) templateData(app *models.Application, user *models.User, status workflow.Status, ev StatusChangeEvent) map[string]string {
	meta := workflow.Metadata(status)

	changedAt := ev.ChangedAt
	if changedAt.IsZero() {
		changedAt = app.StatusUpdatedAt
	}

	detail := ev.StatusDetail
	if detail == "" {
		detail = app.StatusDetail
	}

	data := map[string]string{
		"Status":           string(status),
		"BrandName":        app.BrandName,
		"ManagementNumber": app.ManagementNumber,
		"StatusLabel":      meta.Label,
		"StatusHelp":       meta.Description,
		"StatusDetail":     detail,
		"PortalURL":        fmt.Sprintf("%s/applications/%s", d.portalURL, app.ID),
		"AdminURL":         fmt.Sprintf("%s/applications/%s", d.adminURL, app.ID),
		"ChangedAt":        changedAt.UTC().Format("2006-01-02 15:04 UTC"),
		"Note":             ev.Note,
	}
	if user != nil {
		data["DisplayName"] = user.Name()
	}
	return data
}

func (d *Dispatcher) record(ctx context.Context, applicationID uuid.UUID, status workflow.Status, results []NotificationResult) {
	if d.deliveries == nil || len(results) == 0 {
		return
	}

	rows := make([]models.NotificationDelivery, 0, len(results))
	for _, r := range results {
		outcome := models.DeliveryOutcomeSent
		if !r.Success {
			outcome = models.DeliveryOutcomeFailed
		}
		rows = append(rows, models.NotificationDelivery{
			ApplicationID: applicationID,
			Status:        status,
			Channel:       r.Channel,
			Target:        r.Target,
			Outcome:       outcome,
			Attempts:      r.Attempts,
			ErrorCode:     r.ErrorCode,
			LastError:     r.Error,
		})
	}

	if err := d.deliveries.Record(ctx, rows); err != nil {
		d.log.WithError(err).WithField("application_id", applicationID).Error("Failed to record notification deliveries")
	}
}

func renderFailure(result NotificationResult, err error) NotificationResult {
	result.ErrorCode = CodeRenderFailed
	result.Error = err.Error()
	return result
}

func renderText(src string, data map[string]string) (string, error) {
	tmpl, err := texttemplate.New("text").Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(src string, data map[string]string) (string, error) {
	tmpl, err := htmltemplate.New("email").Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
