package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Fabrika/internal/domain"
)

type fakeSubscribers struct {
	subs []domain.Subscriber
	err  error
}

func (f *fakeSubscribers) ListAutopilotCandidates(_ context.Context) ([]domain.Subscriber, error) {
	return f.subs, f.err
}

type fakeValidator struct {
	inactive map[string]bool
	err      error
	checked  []string
}

func (f *fakeValidator) IsActive(_ context.Context, userID string) (bool, error) {
	f.checked = append(f.checked, userID)
	if f.err != nil {
		return false, f.err
	}
	return !f.inactive[userID], nil
}

type fakeJobs struct {
	mu      sync.Mutex
	created []*domain.Job
	err     error
}

func (f *fakeJobs) Create(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, job)
	return nil
}

type fakeNotifier struct {
	jobIDs []uuid.UUID
	events []domain.Event
	users  []string
}

func (f *fakeNotifier) PublishJobQueued(_ context.Context, jobID uuid.UUID) error {
	f.jobIDs = append(f.jobIDs, jobID)
	return nil
}

func (f *fakeNotifier) PublishUserEvent(_ context.Context, userID string, event domain.Event) error {
	f.users = append(f.users, userID)
	f.events = append(f.events, event)
	return nil
}

func paidSubscriber(userID, topic string) domain.Subscriber {
	return domain.Subscriber{
		UserID:           userID,
		AutopilotEnabled: true,
		Plan:             "premium",
		Topic:            topic,
	}
}

func newTestScheduler(subs *fakeSubscribers, validator SubscriptionValidator, jobs *fakeJobs, notify *fakeNotifier) *Scheduler {
	return New(Config{
		Subscribers: subs,
		Validator:   validator,
		Jobs:        jobs,
		Notify:      notify,
	})
}

func TestTickEnqueuesJobPerEligibleSubscriber(t *testing.T) {
	subs := &fakeSubscribers{subs: []domain.Subscriber{
		paidSubscriber("user-1", "space"),
		paidSubscriber("user-2", "cooking"),
	}}
	jobs := &fakeJobs{}
	notify := &fakeNotifier{}

	s := newTestScheduler(subs, nil, jobs, notify)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(jobs.created) != 2 {
		t.Fatalf("created %d jobs, want 2", len(jobs.created))
	}
	job := jobs.created[0]
	if job.Type != domain.JobTypeCreateFromTopic {
		t.Errorf("job type = %s, want %s", job.Type, domain.JobTypeCreateFromTopic)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("job status = %s, want %s", job.Status, domain.JobStatusQueued)
	}
	if job.Request.Topic != "space" || job.Request.UserID != "user-1" {
		t.Errorf("request = %+v", job.Request)
	}
	if len(notify.jobIDs) != 2 {
		t.Errorf("published %d job.queued, want 2", len(notify.jobIDs))
	}
	if len(notify.events) != 2 || notify.events[0].Type != domain.EventTaskQueued {
		t.Errorf("events = %+v", notify.events)
	}
}

func TestTickSkipsIneligibleSubscribers(t *testing.T) {
	free := paidSubscriber("free-user", "space")
	free.Plan = "free"
	noTopic := paidSubscriber("no-topic", "")
	disabled := paidSubscriber("disabled", "space")
	disabled.AutopilotEnabled = false

	subs := &fakeSubscribers{subs: []domain.Subscriber{
		free,
		noTopic,
		disabled,
		paidSubscriber("user-1", "space"),
	}}
	jobs := &fakeJobs{}

	s := newTestScheduler(subs, nil, jobs, &fakeNotifier{})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(jobs.created) != 1 {
		t.Fatalf("created %d jobs, want 1", len(jobs.created))
	}
	if jobs.created[0].Request.UserID != "user-1" {
		t.Errorf("queued for %s, want user-1", jobs.created[0].Request.UserID)
	}
}

func TestTickSkipsStaleSubscriptions(t *testing.T) {
	subs := &fakeSubscribers{subs: []domain.Subscriber{
		paidSubscriber("stale", "space"),
		paidSubscriber("active", "cooking"),
	}}
	validator := &fakeValidator{inactive: map[string]bool{"stale": true}}
	jobs := &fakeJobs{}

	s := newTestScheduler(subs, validator, jobs, &fakeNotifier{})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(jobs.created) != 1 {
		t.Fatalf("created %d jobs, want 1", len(jobs.created))
	}
	if jobs.created[0].Request.UserID != "active" {
		t.Errorf("queued for %s, want active", jobs.created[0].Request.UserID)
	}
	if len(validator.checked) != 2 {
		t.Errorf("validated %d subscribers, want 2", len(validator.checked))
	}
}

func TestTickValidatorErrorSkipsOnlyThatSubscriber(t *testing.T) {
	subs := &fakeSubscribers{subs: []domain.Subscriber{
		paidSubscriber("user-1", "space"),
		paidSubscriber("user-2", "cooking"),
	}}
	validator := &flakyValidator{failFor: "user-1"}
	jobs := &fakeJobs{}

	s := newTestScheduler(subs, validator, jobs, &fakeNotifier{})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(jobs.created) != 1 {
		t.Fatalf("created %d jobs, want 1", len(jobs.created))
	}
	if jobs.created[0].Request.UserID != "user-2" {
		t.Errorf("queued for %s, want user-2", jobs.created[0].Request.UserID)
	}
}

type flakyValidator struct {
	failFor string
}

func (f *flakyValidator) IsActive(_ context.Context, userID string) (bool, error) {
	if userID == f.failFor {
		return false, errors.New("billing service unavailable")
	}
	return true, nil
}

func TestTickListErrorIsFatal(t *testing.T) {
	subs := &fakeSubscribers{err: errors.New("connection refused")}

	s := newTestScheduler(subs, nil, &fakeJobs{}, &fakeNotifier{})
	if err := s.Tick(context.Background()); err == nil {
		t.Fatal("expected error from Tick")
	}
}

func TestParsePeriod(t *testing.T) {
	if _, err := ParsePeriod(""); err != nil {
		t.Fatalf("empty expression should use default: %v", err)
	}
	if _, err := ParsePeriod("*/30 * * * *"); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
	if _, err := ParsePeriod("not a cron"); err == nil {
		t.Fatal("invalid expression accepted")
	}
}
