// Command oversee-mockapi serves the demo data set over the same HTTP API the
// CLI talks to, for local demos.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"oversee-cli/internal/apitest"
	"oversee-cli/internal/logging"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("OVERSEE_MOCKAPI_ADDR", "127.0.0.1:8087"), "listen address")
	token := flag.String("token", os.Getenv("OVERSEE_MOCKAPI_TOKEN"), "only accept this bearer token (empty accepts any)")
	delay := flag.Duration("delay", 0, "delay added to every response")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	closeLog, err := logging.Setup(logging.Options{Level: *level})
	if err != nil {
		logrus.WithError(err).Fatal("logging setup")
	}
	defer func() { _ = closeLog() }()

	fake := apitest.New(apitest.Demo())
	fake.Token = *token
	fake.Delay = *delay

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.WithField("addr", *addr).Info("mock api listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("mock api stopped")
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
