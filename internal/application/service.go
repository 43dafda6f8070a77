package application

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	repo "github.com/socialapp/user-service/internal/domain/repository"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	"github.com/socialapp/user-service/pkg/helpers"
	"github.com/socialapp/user-service/pkg/mailer"
	tpl "github.com/socialapp/user-service/pkg/mailer/templates"
)

var (
	ErrMissingFields          = errors.New("please fill all required fields")
	ErrEmailEqualsName        = errors.New("email cannot be the same as your name")
	ErrPasswordTooShort       = errors.New("password must be longer than 6 characters")
	ErrPasswordEqualsIdentity = errors.New("password cannot be the same as your name or email")
	ErrDuplicateEmail         = errors.New("email already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrNoPendingRegistration  = errors.New("user data not found in session")
	ErrIncompleteRegistration = errors.New("registration incomplete")
	ErrOtpMismatch            = errors.New("invalid otp")
	ErrOtpRequired            = errors.New("otp is required")
	ErrOtpNotValidated        = errors.New("otp validation required")
	ErrSameEmail              = errors.New("it's your current email")
	ErrNoPendingEmail         = errors.New("email not found in session")
	ErrPasswordMismatch       = errors.New("password does not match")
)

// Mailer delivers a single email and reports failure to the caller.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Publisher enqueues a payload for asynchronous processing.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Service orchestrates the account flows: registration, login, profile,
// email change, and password reset. Transient OTP state lives in Sessions;
// only confirmed facts reach Repo.
type Service struct {
	Repo     repo.UserRepository
	Sessions *sessionstore.Store
	Tokens   *helpers.TokenManager
	Logger   *logrus.Logger

	// Mail delivery. Mail is the awaited path; Queue, when present, is the
	// best-effort path used for registration codes.
	Mail        Mailer
	Queue       Publisher
	AppName     string
	MailEnabled bool

	// Optional infrastructure.
	ES           *elasticsearch.Client
	ESUsersIndex string
	GCS          *storage.Client
	GCSBucket    string
}

func NewService(r repo.UserRepository, sessions *sessionstore.Store, tokens *helpers.TokenManager, logger *logrus.Logger) *Service {
	return &Service{Repo: r, Sessions: sessions, Tokens: tokens, Logger: logger}
}

// normalizeName collapses internal whitespace and trims the edges.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (s *Service) otpJob(template, name, email, code string) mailer.EmailJob {
	data := tpl.ToMap(tpl.EmailData{Name: name, Email: email, Code: code, AppName: s.AppName})
	return mailer.EmailJob{To: email, Template: template, Data: data}
}

// sendOTP renders and sends an OTP email, waiting for the relay. Callers that
// must surface delivery failure (email change, password reset) use this path.
func (s *Service) sendOTP(ctx context.Context, template, name, email, code string) error {
	if !s.MailEnabled || s.Mail == nil {
		return nil
	}
	data := tpl.EmailData{Name: name, Email: email, Code: code, AppName: s.AppName}
	subject, text, html, err := tpl.Render(template, data)
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, email, subject, text, html)
}

// dispatchOTP delivers an OTP email without blocking the caller: the job is
// enqueued for the email worker, and if the queue is missing or rejects it the
// send happens on a background goroutine. Failures are logged, never returned.
func (s *Service) dispatchOTP(template, name, email, code string) {
	if !s.MailEnabled {
		return
	}
	if s.Queue != nil {
		if err := s.Queue.PublishJSON(context.Background(), s.otpJob(template, name, email, code)); err == nil {
			return
		} else if s.Logger != nil {
			s.Logger.WithError(err).WithField("email", email).Warn("email enqueue failed, falling back to direct send")
		}
	}
	go func() {
		if err := s.sendOTP(context.Background(), template, name, email, code); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("email", email).Error("otp email send failed")
		}
	}()
}
