package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	messaging "authsvc/contracts/messaging"
	"authsvc/internal/auth/accounts"
	"authsvc/internal/auth/google"
	"authsvc/internal/auth/handler"
	"authsvc/internal/auth/jwt"
	"authsvc/internal/auth/service"
	"authsvc/internal/auth/store/revocation"
	"authsvc/internal/messaging/consumers"
	"authsvc/internal/messaging/correlation"
	"authsvc/internal/messaging/gateway"
	"authsvc/internal/messaging/router"
	"authsvc/internal/platform/config"
	"authsvc/internal/platform/httpserver"
	"authsvc/internal/platform/kafka/consumer"
	"authsvc/internal/platform/kafka/producer"
	"authsvc/internal/platform/logger"
	"authsvc/internal/platform/metrics"
	platformredis "authsvc/internal/platform/redis"
	httptransport "authsvc/internal/transport/http"
)

// main wires the dependency graph and owns the process lifecycle. All
// business logic lives in the internal packages; anything failing here
// is a configuration problem, so we exit loudly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Outbound broker edge.
	pub, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Error("create producer", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	registry := correlation.New(log)
	gw := gateway.New(registry, pub, cfg.ServiceName, cfg.InternalCallTimeout, log)

	// Revocation store: Redis when configured, then Postgres, then memory.
	trl, cleanup, err := buildRevocationList(cfg)
	if err != nil {
		log.Error("create revocation store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Domain services.
	googleClient := google.New(cfg.Google, cfg.ExternalCallTimeout, log)
	codec := jwt.NewCodec(cfg.JWT)
	authService := service.New(googleClient, accounts.New(gw), codec, trl, log, m)

	// Dispatch table shared by the broker consumers and the HTTP edge.
	dispatcher := router.New(log)
	handler.New(authService, log).Register(dispatcher)

	apiConsumer := consumers.NewAPIRequests(dispatcher, pub, cfg.Workers, m, log)
	serviceConsumer := consumers.NewServiceRequests(dispatcher, pub, cfg.ServiceName, cfg.Workers, m, log)
	repliesConsumer := consumers.NewReplies(registry, m, log)

	group, groupCtx := errgroup.WithContext(ctx)

	runners := []struct {
		topic   string
		group   string
		handler consumer.Handler
	}{
		{messaging.TopicAuthAPIRequests, cfg.Kafka.Group, apiConsumer},
		{messaging.TopicAuthServiceRequests, cfg.Kafka.Group, serviceConsumer},
		{messaging.ReplyTopic(cfg.ServiceName), cfg.Kafka.Group + "-replies", repliesConsumer},
	}
	closers := make([]*consumer.Consumer, 0, len(runners))
	for _, r := range runners {
		c, err := consumer.New(cfg.Kafka.Brokers, r.group, []string{r.topic}, r.handler, log)
		if err != nil {
			log.Error("create consumer", "topic", r.topic, "error", err)
			os.Exit(1)
		}
		closers = append(closers, c)
		group.Go(func() error { return c.Run(groupCtx) })
	}

	// HTTP edge.
	httpHandler := httptransport.NewHandler(dispatcher, googleClient, cfg.ClientRedirectURI, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(httpHandler))

	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, c := range closers {
			c.Close()
		}
		apiConsumer.Wait()
		serviceConsumer.Wait()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("auth service started", "service", cfg.ServiceName, "brokers", cfg.Kafka.Brokers)
	if err := group.Wait(); err != nil {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped cleanly")
}

// buildRevocationList picks the strongest configured backend.
func buildRevocationList(cfg config.Config) (service.TokenRevocationList, func(), error) {
	if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return revocation.NewRedisTRL(client.Client), func() { _ = client.Close() }, nil
	}
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return revocation.NewPostgresTRL(db), func() { _ = db.Close() }, nil
	}
	return revocation.NewMemoryTRL(), func() {}, nil
}
