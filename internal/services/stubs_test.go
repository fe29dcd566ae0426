package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/javajoker/trademark-backend/internal/models"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/workflow"
)

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

type stubApplications struct {
	mu      sync.Mutex
	apps    map[uuid.UUID]models.Application
	entries []models.StatusLogEntry
	getErr  error
	// createErrs are returned by successive Create calls before succeeding.
	createErrs []error
}

func newStubApplications(apps ...models.Application) *stubApplications {
	s := &stubApplications{apps: make(map[uuid.UUID]models.Application)}
	for _, app := range apps {
		s.apps[app.ID] = app
	}
	return s
}

func (s *stubApplications) Get(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	app, ok := s.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &app, nil
}

func (s *stubApplications) Create(_ context.Context, app *models.Application, entry *models.StatusLogEntry, _ *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		return err
	}
	entry.ApplicationID = app.ID
	s.apps[app.ID] = *app
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubApplications) ApplyTransition(_ context.Context, app *models.Application, change repository.StatusChange) error {
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

func (s *stubApplications) ListStatusLog(_ context.Context, applicationID uuid.UUID) ([]models.StatusLogEntry, error) {
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

func (s *stubApplications) List(_ context.Context, filter repository.ApplicationFilter, offset, limit int) ([]models.Application, int64, error) {
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
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (s *stubApplications) status(id uuid.UUID) workflow.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apps[id].Status
}

func (s *stubApplications) log(id uuid.UUID) []models.StatusLogEntry {
	entries, _ := s.ListStatusLog(context.Background(), id)
	return entries
}

type stubPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]models.Payment
	err      error
	marked   int64
}

func newStubPayments(payments ...models.Payment) *stubPayments {
	s := &stubPayments{payments: make(map[uuid.UUID]models.Payment)}
	for _, p := range payments {
		s.payments[p.ID] = p
	}
	return s
}

func (s *stubPayments) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Payment
	for _, p := range s.payments {
		if p.ApplicationID == applicationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *stubPayments) GetByStage(_ context.Context, applicationID uuid.UUID, stage workflow.PaymentStage) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.payments {
		if p.ApplicationID == applicationID && p.Stage == stage {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *stubPayments) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *stubPayments) Create(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ApplicationID == payment.ApplicationID && p.Stage == payment.Stage {
			return repository.ErrPaymentStageExists
		}
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	s.payments[payment.ID] = *payment
	return nil
}

func (s *stubPayments) Update(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payments[payment.ID] = *payment
	return nil
}

func (s *stubPayments) MarkOverdue(_ context.Context, _ time.Time) (int64, error) {
	return s.marked, s.err
}

type stubUsers struct {
	users map[uuid.UUID]models.User
	err   error
}

func (s *stubUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type fakeEmail struct {
	mu       sync.Mutex
	failures int
	sent     []EmailMessage
	calls    int
}

func (f *fakeEmail) SendEmail(_ context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures < 0 || f.calls <= f.failures {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeEmailFailingTo fails every message addressed to one recipient.
type fakeEmailFailingTo struct {
	fakeEmail
	fail string
}

func (f *fakeEmailFailingTo) SendEmail(ctx context.Context, msg EmailMessage) error {
	if msg.To == f.fail {
		f.mu.Lock()
		f.calls++
		f.mu.Unlock()
		return errors.New("mailbox unavailable")
	}
	return f.fakeEmail.SendEmail(ctx, msg)
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+": "+body)
	return nil
}

type stubRecorder struct {
	mu   sync.Mutex
	rows []models.NotificationDelivery
	err  error
}

func (r *stubRecorder) Record(_ context.Context, rows []models.NotificationDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, rows...)
	return nil
}
