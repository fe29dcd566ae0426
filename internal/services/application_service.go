// internal/services/application_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trademark-backend/internal/config"
	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/utils"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

const TriggerSubmission = "submission"

type ApplicationRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Application, error)
	Create(ctx context.Context, app *models.Application, entry *models.StatusLogEntry, payment *models.Payment) error
	ListStatusLog(ctx context.Context, applicationID uuid.UUID) ([]models.StatusLogEntry, error)
	List(ctx context.Context, filter repository.ApplicationFilter, offset, limit int) ([]models.Application, int64, error)
}

type SubmitApplicationRequest struct {
	BrandName   string           `json:"brand_name" validate:"required,max=255"`
	NiceClasses []string         `json:"nice_classes" validate:"omitempty,max=45,dive,nice_class"`
	Description string           `json:"description,omitempty" validate:"max=5000"`
	FilingFee   *decimal.Decimal `json:"filing_fee,omitempty"`
	// SkipPaymentGate starts the application without an upfront fee.
	SkipPaymentGate bool `json:"skip_payment_gate,omitempty"`
}

// Viewer is the authenticated caller reading an application.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

func (v Viewer) CanView(app *models.Application) bool {
	return v.Admin || app.UserID == v.UserID
}

type ApplicationService struct {
	apps   ApplicationRepo
	config config.PaymentConfig
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewApplicationService(apps ApplicationRepo, cfg config.PaymentConfig, log logrus.FieldLogger) *ApplicationService {
	return &ApplicationService{
		apps:   apps,
		config: cfg,
		log:    log,
		now:    time.Now,
	}
}

// Submit creates the application with its first log entry and, when a
// filing fee applies, the unpaid filing payment.
func (s *ApplicationService) Submit(ctx context.Context, userID uuid.UUID, req *SubmitApplicationRequest) (*models.Application, *models.StatusLogEntry, error) {
	fee, err := s.filingFee(req)
	if err != nil {
		return nil, nil, err
	}

	status := workflow.ResolveInitialStatus(workflow.InitialStatusInput{
		PaymentAmount:   fee,
		SkipPaymentGate: req.SkipPaymentGate,
	})
	now := s.now().UTC()

	app := &models.Application{
		UserID:          userID,
		BrandName:       strings.TrimSpace(req.BrandName),
		NiceClasses:     pq.StringArray(req.NiceClasses),
		Description:     req.Description,
		Status:          status,
		StatusDetail:    workflow.Metadata(status).Description,
		StatusUpdatedAt: now,
		Version:         1,
	}
	app.ID = uuid.New()

	entry := &models.StatusLogEntry{
		ID:       uuid.New(),
		ToStatus: status,
		Metadata: models.JSONB{
			models.MetaAutomated: true,
			models.MetaTrigger:   TriggerSubmission,
		},
		ChangedBy: &userID,
		ChangedAt: now,
	}

	var payment *models.Payment
	if status == workflow.StatusAwaitingPayment {
		payment = &models.Payment{
			Stage:      workflow.StageFiling,
			Status:     models.PaymentStatusUnpaid,
			Amount:     decimal.NewNullDecimal(*fee),
			PaidAmount: decimal.Zero,
			Currency:   s.config.DefaultCurrency,
		}
		if s.config.DueInDays > 0 {
			due := now.AddDate(0, 0, s.config.DueInDays)
			payment.DueAt = &due
		}
	}

	// Management numbers are random; regenerate on the rare collision.
	backoff := retry.WithMaxRetries(2, retry.NewConstant(10*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		number, err := utils.GenerateManagementNumber(now)
		if err != nil {
			return err
		}
		app.ManagementNumber = number

		err = s.apps.Create(ctx, app, entry, payment)
		if errors.Is(err, repository.ErrDuplicate) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"application_id":    app.ID,
		"management_number": app.ManagementNumber,
		"status":            status,
	}).Info("Application submitted")

	return app, entry, nil
}

func (s *ApplicationService) filingFee(req *SubmitApplicationRequest) (*decimal.Decimal, error) {
	if req.FilingFee != nil {
		if req.FilingFee.IsNegative() {
			return nil, ErrInvalidAmount
		}
		return req.FilingFee, nil
	}
	if s.config.FilingFee == "" {
		return nil, nil
	}

	fee, err := decimal.NewFromString(s.config.FilingFee)
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (s *ApplicationService) Get(ctx context.Context, id uuid.UUID, viewer Viewer) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !viewer.CanView(app) {
		return nil, ErrForbidden
	}
	return app, nil
}

// History returns the status log, oldest first.
func (s *ApplicationService) History(ctx context.Context, id uuid.UUID, viewer Viewer) ([]models.StatusLogEntry, error) {
	if _, err := s.Get(ctx, id, viewer); err != nil {
		return nil, err
	}
	return s.apps.ListStatusLog(ctx, id)
}

func (s *ApplicationService) List(ctx context.Context, filter repository.ApplicationFilter, params utils.PaginationParams) ([]models.Application, int64, error) {
	return s.apps.List(ctx, filter, params.Offset(), params.Limit)
}
