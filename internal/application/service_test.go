package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/socialapp/user-service/internal/domain/entity"
	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	"github.com/socialapp/user-service/pkg/helpers"
)

// mockRepo is a function-field fake; unset lookups behave like an empty store.
type mockRepo struct {
	mu      sync.Mutex
	created []entity.User

	CreateFn     func(ctx context.Context, u *entity.User) error
	GetAllFn     func(ctx context.Context) ([]entity.User, error)
	GetByIDFn    func(ctx context.Context, id string) (*entity.User, error)
	GetByEmailFn func(ctx context.Context, email string) (*entity.User, error)
	UpdateByIDFn func(ctx context.Context, id string, patch repo.UserPatch) (*entity.User, error)
}

func (m *mockRepo) Create(ctx context.Context, u *entity.User) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, u); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.created = append(m.created, *u)
	m.mu.Unlock()
	return nil
}

func (m *mockRepo) GetAll(ctx context.Context) ([]entity.User, error) {
	if m.GetAllFn != nil {
		return m.GetAllFn(ctx)
	}
	return []entity.User{}, nil
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, repo.ErrNotFound
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, repo.ErrNotFound
}

func (m *mockRepo) UpdateByID(ctx context.Context, id string, patch repo.UserPatch) (*entity.User, error) {
	if m.UpdateByIDFn != nil {
		return m.UpdateByIDFn(ctx, id, patch)
	}
	return nil, repo.ErrNotFound
}

func (m *mockRepo) createdUsers() []entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.User, len(m.created))
	copy(out, m.created)
	return out
}

type sentMail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type mockMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	Fail  error
}

func (m *mockMailer) Send(ctx context.Context, to, subject, text, html string) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.mu.Lock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	m.mu.Unlock()
	return nil
}

func (m *mockMailer) sentMails() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

type mockQueue struct {
	mu   sync.Mutex
	jobs []any
	Fail error
}

func (m *mockQueue) PublishJSON(ctx context.Context, body any) error {
	if m.Fail != nil {
		return m.Fail
	}
	m.mu.Lock()
	m.jobs = append(m.jobs, body)
	m.mu.Unlock()
	return nil
}

func (m *mockQueue) published() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.jobs))
	copy(out, m.jobs)
	return out
}

type testEnv struct {
	svc      *Service
	repo     *mockRepo
	sessions *sessionstore.Store
	mail     *mockMailer
	queue    *mockQueue
	tokens   *helpers.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := &mockRepo{}
	sessions := sessionstore.New(rdb, 30*time.Minute)
	tokens := helpers.NewTokenManager("test-secret", time.Hour)

	svc := NewService(r, sessions, tokens, logger)
	mail := &mockMailer{}
	queue := &mockQueue{}
	svc.Mail = mail
	svc.Queue = queue
	svc.MailEnabled = true
	svc.AppName = "socialapp"

	return &testEnv{svc: svc, repo: r, sessions: sessions, mail: mail, queue: queue, tokens: tokens}
}
