package tls

import (
	"crypto/tls"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"user-service/internal/util"
)

// TLSConfig carries the server certificate settings resolved from the
// environment.
type TLSConfig struct {
	EnableTLS   bool
	AutoCert    bool
	Domain      string
	CertFile    string
	KeyFile     string
	AutoCertDir string
	Email       string
	Environment string
}

// TLSManager resolves server certificates in order of preference:
// autocert, configured key pair, then a generated dev certificate.
type TLSManager struct {
	cfg      *TLSConfig
	autoCert *autocert.Manager
}

func NewTLSManager(cfg *TLSConfig) *TLSManager {
	m := &TLSManager{cfg: cfg}
	if cfg.EnableTLS && cfg.AutoCert {
		m.initAutocert()
	}
	return m
}

func (m *TLSManager) initAutocert() {
	if err := os.MkdirAll(m.cfg.AutoCertDir, 0700); err != nil {
		util.Warn("Could not create autocert cache directory", zap.Error(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.cfg.Domain),
		Cache:      autocert.DirCache(m.cfg.AutoCertDir),
		Email:      m.cfg.Email,
	}

	util.Info("Autocert configured",
		zap.String("domain", m.cfg.Domain),
		zap.String("cache_dir", m.cfg.AutoCertDir))
}

// GetCertificate is the tls.Config callback.
func (m *TLSManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		}
	}

	if m.cfg.CertFile != "" && m.cfg.KeyFile != "" {
		if cert, err := tls.LoadX509KeyPair(m.cfg.CertFile, m.cfg.KeyFile); err == nil {
			return &cert, nil
		}
	}

	hosts := []string{m.cfg.Domain, "localhost", "127.0.0.1", "::1"}
	cert, err := loadOrCreateDevCert(m.cfg.AutoCertDir, hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain certificate: %w", err)
	}
	return &cert, nil
}

func (m *TLSManager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate:   m.GetCertificate,
		NextProtos:       []string{"h2", "http/1.1"},
		MinVersion:       tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{tls.X25519, tls.CurveP256},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
}

func (m *TLSManager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
