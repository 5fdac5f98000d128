package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"oahushop/internal/app"
	"oahushop/internal/config"
	"oahushop/internal/logx"
	"oahushop/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment()})

	if cfg.Environment().IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shop, err := app.New(cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("init")
	}
	defer shop.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           shop.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS, err := configureTLS(srv, cfg.TLS)
	if err != nil {
		logx.Fatal().Err(err).Msg("tls")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		scheme := "http"
		if useTLS {
			scheme = "https"
		}
		logx.Info().Str("addr", scheme+"://localhost:"+cfg.Port).Msg("server starting")

		var err error
		if useTLS {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// configureTLS loads the configured key pair, or generates a self-signed one
// for local HTTPS.
func configureTLS(srv *http.Server, cfg config.TLSConfig) (bool, error) {
	var cert tls.Certificate
	var err error
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	case cfg.SelfSigned:
		cert, err = services.SelfSignedCert()
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	return true, nil
}
