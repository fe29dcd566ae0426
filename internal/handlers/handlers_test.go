package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta json.RawMessage `json:"meta"`
}

type caller struct {
	id    uuid.UUID
	admin bool
}

// withCaller stands in for AuthRequired.
func withCaller(who *caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if who == nil {
			return
		}
		c.Set(utils.ContextUserID, who.id)
		if who.admin {
			c.Set(utils.ContextRole, utils.RoleAdmin)
		} else {
			c.Set(utils.ContextRole, "client")
		}
	}
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

type fakeApps struct {
	apps    map[uuid.UUID]*models.Application
	history []models.StatusLogEntry
	err     error

	filter repository.ApplicationFilter
	params utils.PaginationParams
}

func newFakeApps(apps ...*models.Application) *fakeApps {
	f := &fakeApps{apps: make(map[uuid.UUID]*models.Application)}
	for _, a := range apps {
		f.apps[a.ID] = a
	}
	return f
}

func (f *fakeApps) Get(_ context.Context, id uuid.UUID, viewer services.Viewer) (*models.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, services.ErrApplicationNotFound
	}
	if !viewer.CanView(app) {
		return nil, services.ErrForbidden
	}
	return app, nil
}

func (f *fakeApps) History(ctx context.Context, id uuid.UUID, viewer services.Viewer) ([]models.StatusLogEntry, error) {
	if _, err := f.Get(ctx, id, viewer); err != nil {
		return nil, err
	}
	return f.history, nil
}

func (f *fakeApps) List(_ context.Context, filter repository.ApplicationFilter, params utils.PaginationParams) ([]models.Application, int64, error) {
	f.filter, f.params = filter, params
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []models.Application
	for _, a := range f.apps {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

type fakeWorkflow struct {
	err error

	submitted  *services.SubmitApplicationRequest
	submitter  uuid.UUID
	target     workflow.Status
	opts       services.TransitionOptions
	confirmed  *services.PaymentConfirmation
	confirmer  *uuid.UUID
	transition *services.TransitionResult
}

func (f *fakeWorkflow) Submit(_ context.Context, userID uuid.UUID, req *services.SubmitApplicationRequest) (*models.Application, error) {
	f.submitted, f.submitter = req, userID
	if f.err != nil {
		return nil, f.err
	}
	app := &models.Application{UserID: userID, BrandName: req.BrandName, Status: workflow.StatusAwaitingDocuments}
	app.ID = uuid.New()
	return app, nil
}

func (f *fakeWorkflow) Transition(_ context.Context, id uuid.UUID, target workflow.Status, opts services.TransitionOptions) (*services.TransitionResult, error) {
	f.target, f.opts = target, opts
	if f.err != nil {
		return nil, f.err
	}
	app := &models.Application{Status: target}
	app.ID = id
	f.transition = &services.TransitionResult{Application: app, Entry: &models.StatusLogEntry{ApplicationID: id, ToStatus: target}}
	return f.transition, nil
}

func (f *fakeWorkflow) ConfirmPayment(_ context.Context, req *services.PaymentConfirmation, actor *uuid.UUID) (*services.PaymentConfirmationResult, error) {
	f.confirmed, f.confirmer = req, actor
	if f.err != nil {
		return nil, f.err
	}
	return &services.PaymentConfirmationResult{Payment: &models.Payment{Status: models.PaymentStatusPaid}}, nil
}

type fakeLedger struct {
	payments  map[uuid.UUID]*models.Payment
	summary   *services.ApplicationPaymentSummary
	requested *services.RequestPaymentRequest
	err       error
	reconcile int64
}

func (f *fakeLedger) Summary(_ context.Context, _ uuid.UUID) (*services.ApplicationPaymentSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func (f *fakeLedger) RequestPayment(_ context.Context, req *services.RequestPaymentRequest) (*models.Payment, error) {
	f.requested = req
	if f.err != nil {
		return nil, f.err
	}
	p := &models.Payment{ApplicationID: req.ApplicationID, Stage: workflow.PaymentStage(req.Stage), Status: models.PaymentStatusUnpaid}
	p.ID = uuid.New()
	return p, nil
}

func (f *fakeLedger) GetPayment(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, services.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakeLedger) ReconcileOverdue(context.Context) (int64, error) {
	return f.reconcile, f.err
}

func application(owner uuid.UUID, status workflow.Status) *models.Application {
	app := &models.Application{UserID: owner, BrandName: "Moonbrew", ManagementNumber: "TM-20260301-ABC234", Status: status}
	app.ID = uuid.New()
	return app
}
