package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user-service/internal/factory"
	"user-service/internal/handler"
	"user-service/internal/util"
)

const shutdownGrace = 30 * time.Second

func main() {
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()
	router := buildRouter(f)

	if cfg.Server.EnableTLS && cfg.IsProduction() && cfg.Server.AutoCert {
		serveWithAutocert(f, router)
		return
	}

	addr := cfg.GetServerAddress()
	if cfg.Server.EnableTLS {
		addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		var err error
		if cfg.Server.EnableTLS {
			server.TLSConfig = f.TLSManager().GetTLSConfig()
			if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
				err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
			} else {
				err = server.ListenAndServeTLS("", "")
			}
		} else {
			util.Warn("TLS is disabled", util.String("environment", cfg.Environment))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Fatal("Server failed", util.ErrorField(err))
		}
	}()

	util.Info("Server listening",
		util.String("address", addr),
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
	)

	waitForShutdown(f, server)
}

func buildRouter(f *factory.Factory) http.Handler {
	services := f.ServiceFactory()
	cfg := f.Config()

	return handler.NewRouter(handler.RouterConfig{
		OTPHandler:      handler.NewOTPHandler(services.OTPService()),
		UserHandler:     handler.NewUserHandler(services.UserService()),
		SettingsHandler: handler.NewSettingsHandler(services.SettingsService()),
		AuthHandler:     handler.NewAuthHandler(services.AuthService()),
		Tokens:          f.TokenManager(),
		EnforceTLS:      cfg.Server.EnableTLS,
	}, util.Get())
}

// serveWithAutocert runs the production pair: port 80 answers ACME
// challenges, port 443 serves the API with managed certificates.
func serveWithAutocert(f *factory.Factory, router http.Handler) {
	tlsManager := f.TLSManager()
	acme := tlsManager.GetAutocertManager()
	if acme == nil {
		util.Fatal("Autocert manager unavailable in production")
	}

	challengeServer := &http.Server{
		Addr:    ":80",
		Handler: acme.HTTPHandler(nil),
	}
	apiServer := &http.Server{
		Addr:      ":443",
		Handler:   router,
		TLSConfig: tlsManager.GetTLSConfig(),
	}

	go func() {
		if err := challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Error("ACME challenge server failed", util.ErrorField(err))
		}
	}()
	go func() {
		util.Info("HTTPS server listening with autocert",
			util.String("domain", f.Config().Server.Domain))
		if err := apiServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Error("HTTPS server failed", util.ErrorField(err))
		}
	}()

	waitForShutdown(f, apiServer, challengeServer)
}

func waitForShutdown(f *factory.Factory, servers ...*http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigCh
	util.Info("Shutting down", util.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			util.Error("Graceful shutdown failed", util.ErrorField(err))
		}
	}
	f.Close()
}
