package router

import (
	userapp "github.com/socialapp/user-service/internal/application"
	"github.com/socialapp/user-service/internal/container"
	pginfra "github.com/socialapp/user-service/internal/infrastructure/postgres"
	"github.com/socialapp/user-service/internal/infrastructure/sessionstore"
	handlers "github.com/socialapp/user-service/internal/interface/http"
	"github.com/socialapp/user-service/internal/router/modules"
)

func buildUserService() *userapp.Service {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetPGPool())
	sessions := sessionstore.New(container.GetRedis(), cfg.SessionTTL)

	svc := userapp.NewService(repo, sessions, container.GetTokens(), container.GetLogger())
	svc.AppName = cfg.AppName
	svc.MailEnabled = cfg.MailSendEnabled
	if mg := container.GetMailgun(); mg != nil {
		svc.Mail = mg
	}
	if pub := container.GetRabbitPub(); pub != nil {
		svc.Queue = pub
	}
	svc.ES = container.GetES()
	svc.ESUsersIndex = cfg.ESUsersIndex
	svc.GCS = container.GetGCS()
	svc.GCSBucket = cfg.GCSBucket
	return svc
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	svc := buildUserService()
	logger := container.GetLogger()
	cookies := container.GetCookies()

	userHandler := handlers.NewUserHandler(svc, logger, cookies)
	profileHandler := handlers.NewProfileHandler(svc, logger)
	emailHandler := handlers.NewEmailHandler(svc, logger)
	passwordHandler := handlers.NewPasswordHandler(svc, logger)

	r.Add(modules.NewUserModule(userHandler, profileHandler, emailHandler, passwordHandler))
}
