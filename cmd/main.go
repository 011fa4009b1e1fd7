package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"helpmatch-service/internal/feedback"
	"helpmatch-service/internal/matching"
	"helpmatch-service/internal/notifications"
	"helpmatch-service/internal/requests"
	"helpmatch-service/internal/tracking"
	"helpmatch-service/internal/users"
	"helpmatch-service/migrations"
	"helpmatch-service/pkg/config"
	"helpmatch-service/pkg/db"
	"helpmatch-service/pkg/jwt"
	"helpmatch-service/pkg/kafka"
	"helpmatch-service/pkg/mailer"
	rredis "helpmatch-service/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logrus.WithField("prefix", "main")

	// ── 1. Config + JWT secret ──
	cfg := config.Load()
	if err := jwt.Init(cfg.JWTSecret); err != nil {
		log.Fatal(err)
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	// ── 3. Redis ──
	redisClient, err := rredis.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	// ── 4. Kafka ──
	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)

	if err := kafkaClient.EnsureTopics(ctx,
		kafka.TopicRequestCreated,
		kafka.TopicRequestAccepted,
		kafka.TopicRequestCompleted,
	); err != nil {
		log.Fatal(err)
	}

	// ── 5. Mailer ──
	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom)

	// ── 6. Services ──
	userSvc := users.NewService(database.Pool, redisClient)
	requestStore := requests.NewPostgresStore(database.Pool)
	requestSvc := requests.NewService(requestStore, kafkaClient, redisClient)
	feedbackSvc := feedback.NewService(database.Pool)
	notificationSvc := notifications.NewService(database.Pool)
	matcher := matching.NewMatcher(userSvc)

	// ── 7. Background consumers ──
	sink := notifications.NewConsumer(notificationSvc, kafkaClient, mail, userSvc)
	sink.Start(ctx)

	// ── 8. WebSocket hub ──
	wsHub := tracking.NewHub()

	// ── 9. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"helpmatch-service"}`))
	})

	r.Mount("/users", users.NewHandler(userSvc).Routes())
	r.Mount("/requests", requests.NewHandler(requestSvc, wsHub).Routes())
	r.Mount("/match", matching.NewHandler(matcher).Routes())
	r.Mount("/feedbacks", feedback.NewHandler(feedbackSvc).Routes())
	r.Mount("/notifications", notifications.NewHandler(notificationSvc).Routes())
	r.Mount("/ws", wsHub.Routes())

	// ── 10. Start server ──
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Infof("helpmatch-service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ── 11. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	srv.Shutdown(shutCtx)
	cancel() // stop consumers
}
