package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

// memStore keeps applications, their status log and payments in memory.
type memStore struct {
	mu       sync.Mutex
	apps     map[uuid.UUID]models.Application
	entries  []models.StatusLogEntry
	payments map[uuid.UUID]models.Payment
}

func newMemStore() *memStore {
	return &memStore{
		apps:     make(map[uuid.UUID]models.Application),
		payments: make(map[uuid.UUID]models.Payment),
	}
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

func (s *memStore) Create(_ context.Context, app *models.Application, entry *models.StatusLogEntry, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ApplicationID = app.ID
	s.apps[app.ID] = *app
	s.entries = append(s.entries, *entry)
	if payment != nil {
		payment.ID = uuid.New()
		payment.ApplicationID = app.ID
		s.payments[payment.ID] = *payment
	}
	return nil
}

func (s *memStore) ApplyTransition(_ context.Context, app *models.Application, change repository.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.apps[app.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != app.Version {
		return repository.ErrConcurrentUpdate
	}
	stored.Status = change.To
	stored.StatusDetail = change.Detail
	stored.StatusUpdatedAt = change.At
	stored.Version++
	s.apps[app.ID] = stored

	change.Entry.ApplicationID = app.ID
	s.entries = append(s.entries, *change.Entry)
	*app = stored
	return nil
}

func (s *memStore) ListStatusLog(_ context.Context, applicationID uuid.UUID) ([]models.StatusLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StatusLogEntry
	for _, e := range s.entries {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (s *memStore) List(_ context.Context, filter repository.ApplicationFilter, offset, limit int) ([]models.Application, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, app := range s.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		out = append(out, app)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	if end := offset + limit; end < len(out) {
		out = out[:end]
	}
	return out[offset:], total, nil
}

func (s *memStore) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.ApplicationID == applicationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out, nil
}

func (s *memStore) GetByStage(_ context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ApplicationID == applicationID && p.Stage == stage {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) Update(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	s.payments[payment.ID] = *payment
	return nil
}

func (s *memStore) MarkOverdue(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// memPayments is the ledger's view of memStore.
type memPayments struct{ *memStore }

func (p memPayments) Create(_ context.Context, payment *models.Payment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	payment.ID = uuid.New()
	p.payments[payment.ID] = *payment
	return nil
}

type memUsers map[uuid.UUID]*models.User

func (u memUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

type outbox struct {
	mu   sync.Mutex
	sent []services.EmailMessage
}

func (o *outbox) SendEmail(_ context.Context, msg services.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) messages() []services.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]services.EmailMessage(nil), o.sent...)
}

type discardDeliveries struct{}

func (discardDeliveries) Record(context.Context, []models.NotificationDelivery) error { return nil }

type WorkflowAPISuite struct {
	suite.Suite

	store    *memStore
	mail     *outbox
	workflow *services.WorkflowService
	engine   *gin.Engine

	client      uuid.UUID
	clientToken string
	adminToken  string
}

func (s *WorkflowAPISuite) SetupTest() {
	log, _ := test.NewNullLogger()
	cfg := testConfig()

	s.store = newMemStore()
	s.mail = &outbox{}
	s.client = uuid.New()
	users := memUsers{
		s.client: {Email: "owner@brand.example", Phone: "+821012345678", DisplayName: "Brand Owner"},
	}

	payments := memPayments{s.store}
	ledger := services.NewLedgerService(payments, cfg.Payment, log)
	transitions := services.NewTransitionService(s.store, ledger, services.NewMemoryLocker(), log)
	applications := services.NewApplicationService(s.store, cfg.Payment, log)
	dispatcher := services.NewDispatcher(s.store, users, services.DispatcherOptions{
		Email:      s.mail,
		Deliveries: discardDeliveries{},
		PortalURL:  "https://portal.example",
	}, log)
	s.workflow = services.NewWorkflowService(applications, transitions, ledger, dispatcher, time.Minute, log)

	s.engine = Setup(cfg, Dependencies{
		Applications: applications,
		Workflow:     s.workflow,
		Ledger:       ledger,
		Gateway:      services.NewPaymentGateway(cfg.Payment, payments, s.workflow, log),
		Users:        users,
		Dispatcher:   dispatcher,
		Dashboard:    fakeStats{},
		Log:          log,
	})

	var err error
	s.clientToken, err = utils.GenerateJWT(s.client, "owner@brand.example", string(models.UserRoleClient), time.Hour)
	s.Require().NoError(err)
	s.adminToken, err = utils.GenerateJWT(uuid.New(), "ops@firm.example", utils.RoleAdmin, time.Hour)
	s.Require().NoError(err)
}

func (s *WorkflowAPISuite) TearDownTest() {
	s.workflow.Wait()
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (s *WorkflowAPISuite) call(method, path, token string, body interface{}) (int, apiEnvelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env apiEnvelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *WorkflowAPISuite) decode(raw json.RawMessage, v interface{}) {
	s.Require().NoError(json.Unmarshal(raw, v))
}

func (s *WorkflowAPISuite) submit() models.Application {
	code, env := s.call(http.MethodPost, "/v1/applications", s.clientToken, map[string]interface{}{
		"brand_name":   "Blue Heron",
		"nice_classes": []string{"25", "35"},
		"filing_fee":   150000,
	})
	s.Require().Equal(http.StatusCreated, code)

	var app models.Application
	s.decode(env.Data, &app)
	return app
}

func (s *WorkflowAPISuite) TestSubmissionOpensFilingPayment() {
	app := s.submit()
	s.Equal(workflow.StatusAwaitingPayment, app.Status)
	s.Equal(s.client, app.UserID)
	s.NotEmpty(app.ManagementNumber)

	code, env := s.call(http.MethodGet, "/v1/applications/"+app.ID.String()+"/payments/summary", s.clientToken, nil)
	s.Require().Equal(http.StatusOK, code)

	var summary services.ApplicationPaymentSummary
	s.decode(env.Data, &summary)
	s.Require().Len(summary.Stages, 1)
	s.Equal(workflow.StageFiling, summary.Stages[0].Stage)
	s.Equal(models.PaymentStatusUnpaid, summary.Stages[0].Status)
	s.Equal("150000", summary.Remaining.String())
	s.False(summary.AllPaid)
}

func (s *WorkflowAPISuite) TestOtherClientCannotReadApplication() {
	app := s.submit()

	stranger, err := utils.GenerateJWT(uuid.New(), "someone@else.example", string(models.UserRoleClient), time.Hour)
	s.Require().NoError(err)

	code, env := s.call(http.MethodGet, "/v1/applications/"+app.ID.String(), stranger, nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal("FORBIDDEN", env.Error.Code)
}

func (s *WorkflowAPISuite) TestPaymentGateAndAutoTransition() {
	app := s.submit()
	appPath := "/v1/admin/applications/" + app.ID.String()

	code, env := s.call(http.MethodPost, appPath+"/transition", s.adminToken, map[string]string{
		"status": string(workflow.StatusPaymentReceived),
	})
	s.Require().Equal(http.StatusConflict, code)
	s.Equal("PAYMENT_INCOMPLETE", env.Error.Code)
	s.Contains(string(env.Error.Details), "filing")

	payments, err := s.store.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	confirmPath := "/v1/admin/payments/" + payments[0].ID.String() + "/confirm"

	code, env = s.call(http.MethodPost, confirmPath, s.adminToken, map[string]interface{}{
		"paid_amount":   100000,
		"remitter_name": "Blue Heron Ltd",
	})
	s.Require().Equal(http.StatusOK, code)
	var partial services.PaymentConfirmationResult
	s.decode(env.Data, &partial)
	s.Equal(models.PaymentStatusPartial, partial.Payment.Status)
	s.Nil(partial.Transition)

	code, env = s.call(http.MethodPost, confirmPath, s.adminToken, map[string]interface{}{
		"paid_amount":   150000,
		"remitter_name": "Blue Heron Ltd",
	})
	s.Require().Equal(http.StatusOK, code)
	var full services.PaymentConfirmationResult
	s.decode(env.Data, &full)
	s.Equal(models.PaymentStatusPaid, full.Payment.Status)
	s.Require().NotNil(full.Transition)
	s.Equal(workflow.StatusPaymentReceived, full.Transition.Application.Status)
	s.Empty(full.TransitionSkipped)

	s.workflow.Wait()
	sent := s.mail.messages()
	s.Require().Len(sent, 2)
	for _, msg := range sent {
		s.Equal("owner@brand.example", msg.To)
	}

	code, env = s.call(http.MethodGet, "/v1/applications/"+app.ID.String()+"/history", s.clientToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var history []models.StatusLogEntry
	s.decode(env.Data, &history)
	s.Require().Len(history, 2)
	s.Equal(workflow.StatusAwaitingPayment, history[0].ToStatus)
	s.Equal(workflow.StatusPaymentReceived, history[1].ToStatus)
	s.Require().NotNil(history[1].FromStatus)
	s.Equal(workflow.StatusAwaitingPayment, *history[1].FromStatus)
}

func (s *WorkflowAPISuite) TestSettledPaymentRejectsFurtherConfirmation() {
	app := s.submit()
	payments, err := s.store.ListByApplication(context.Background(), app.ID)
	s.Require().NoError(err)
	confirmPath := "/v1/admin/payments/" + payments[0].ID.String() + "/confirm"
	body := map[string]interface{}{"paid_amount": 150000, "remitter_name": "Blue Heron Ltd"}

	code, _ := s.call(http.MethodPost, confirmPath, s.adminToken, body)
	s.Require().Equal(http.StatusOK, code)

	code, env := s.call(http.MethodPost, confirmPath, s.adminToken, body)
	s.Equal(http.StatusConflict, code)
	s.Equal("PAYMENT_SETTLED", env.Error.Code)
}

func TestWorkflowAPISuite(t *testing.T) {
	suite.Run(t, new(WorkflowAPISuite))
}
