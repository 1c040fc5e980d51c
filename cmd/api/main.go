package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"portal/internal/cloudinary"
	"portal/internal/config"
	"portal/internal/feedback"
	"portal/internal/httpapi"
	"portal/internal/identity"
	"portal/internal/logger"
	"portal/internal/meeting"
	"portal/internal/notify"
	"portal/internal/question"
	"portal/internal/queue"
	"portal/internal/store"
	"portal/internal/store/memstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.L()
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.Configure(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// backend bundles the stores behind one persistence choice.
type backend struct {
	users     identity.Directory
	meetings  meeting.Store
	questions question.Store
	feedback  feedback.Store
	health    map[string]store.Pinger
	close     func()
}

func openBackend(ctx context.Context, cfg config.App, log zerolog.Logger) (*backend, error) {
	if cfg.StoreBackend == "memory" {
		st := memstore.New()
		seedDemo(st, log)
		return &backend{users: st, meetings: st, questions: st, feedback: st, health: map[string]store.Pinger{}, close: func() {}}, nil
	}

	db, err := store.OpenPostgres(ctx, cfg.DatabaseURL, store.DefaultPool)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err := store.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("migrations applied")
	}
	return &backend{
		users:     identity.NewRepository(db),
		meetings:  meeting.NewRepository(db),
		questions: question.NewRepository(db),
		feedback:  feedback.NewRepository(db),
		health:    map[string]store.Pinger{"db": db},
		close:     func() { closeDB(db, log) },
	}, nil
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("close db")
	}
}

// seedDemo gives the in-memory backend a department and one director so
// tokens from cmd/devtoken resolve.
func seedDemo(st *memstore.Store, log zerolog.Logger) {
	dept := st.AddDepartment("General")
	year := 1
	st.AddUser(memstore.User{ID: 1, Name: "Demo Director", Email: "director@portal.local", Role: "academic_director"})
	st.AddUser(memstore.User{ID: 2, Name: "Demo Student", Email: "student@portal.local", Role: "student", DepartmentID: &dept, Year: &year})
	st.AddUser(memstore.User{ID: 3, Name: "Demo Staff", Email: "staff@portal.local", Role: "staff", DepartmentID: &dept})
	log.Warn().Int64("department_id", dept).Msg("memory store seeded with demo users 1-3")
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		be.health["redis"] = redisClient
		q = queue.NewRedisQueue(redisClient.Client, "")
	} else {
		mem := queue.NewInMemory(0)
		q = mem
		mailer, err := mailBackend(cfg).Mailer(logger.With("mailer"))
		if err != nil {
			return err
		}
		// Nothing else drains an in-process queue, so the API runs the worker itself.
		go func() {
			if err := notify.NewWorker(mem, mailer, logger.With("notify"), cfg.NotifyTimeout).Run(ctx); err != nil {
				log.Error().Err(err).Msg("notification worker stopped")
			}
		}()
	}

	var files meeting.AttachmentStore
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		files = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("cloudinary configured")
	} else {
		log.Info().Msg("cloudinary not configured, minutes attachments disabled")
	}

	meetingLog := logger.With("meeting")
	meetings := meeting.NewService(be.meetings, be.users, notify.NewDispatcher(q), meeting.Options{
		Location:      cfg.Location(),
		NotifyTimeout: cfg.NotifyTimeout,
		Attachments:   files,
		Logger:        &meetingLog,
	})
	questions := question.NewService(be.questions, be.users)
	fb := feedback.NewService(be.feedback, questions, meetings)

	r := httpapi.NewRouter(httpapi.Deps{
		Meetings:        meetings,
		Questions:       questions,
		Feedback:        fb,
		Users:           be.users,
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Health:          be.health,
		Logger:          logger.With("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreBackend).Str("queue", cfg.QueueBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}
	// Announcements already accepted still reach the queue.
	meetings.Wait()

	log.Info().Msg("server exited")
	return nil
}

func mailBackend(cfg config.App) notify.Backend {
	return notify.Backend{
		Kind: cfg.MailBackend,
		SMTP: notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromName:  cfg.MailFromName,
			FromEmail: cfg.MailFromEmail,
			UseTLS:    cfg.SMTPTLS,
		},
		SendGridKey: cfg.SendGridAPIKey,
	}
}
