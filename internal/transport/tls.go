package transport

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"

	"dezap/internal/config"
)

// DezapALPN is the single protocol identifier every endpoint negotiates.
const DezapALPN = "dezap/1"

// loadOrGenerateCert returns cfg's configured certificate, or a freshly
// generated self-signed one bound to cfg's server name when none is
// configured.
func loadOrGenerateCert(cfg config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertPath != nil && cfg.KeyPath != nil {
		cert, err := tls.LoadX509KeyPair(*cfg.CertPath, *cfg.KeyPath)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("load TLS material (%s, %s): %w", *cfg.CertPath, *cfg.KeyPath, err)
		}
		return cert, nil
	}
	cert, err := generateSelfSigned(cfg.ServerName)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate self-signed certificate: %w", err)
	}
	return cert, nil
}

// BuildServerTLSConfig loads or generates this endpoint's server TLS
// material once and returns both the tls.Config to listen with and the
// certificate itself. Callers that also dial out over the same endpoint
// must feed this exact certificate into BuildClientTLSConfig's peerCert,
// since a client role has no other way to learn what this process's
// server role presents.
func BuildServerTLSConfig(cfg config.TLSConfig) (*tls.Config, tls.Certificate, error) {
	cert, err := loadOrGenerateCert(cfg)
	if err != nil {
		return nil, tls.Certificate{}, err
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{DezapALPN},
		ServerName:   cfg.ServerName,
	}
	if cfg.InsecureLocal {
		tlsCfg.InsecureSkipVerify = true
	}
	return tlsCfg, cert, nil
}

// BuildClientTLSConfig returns the TLS configuration a client role dials
// with. peerCert, when non-nil, is trusted directly instead of loading a
// trust store from disk: this is how a process that is both listening and
// dialing out over the same endpoint verifies the peer it reaches, since
// that peer presents the same self-signed (or configured) certificate
// this process's own server role presents. With peerCert nil, cfg's
// configured cert_path (if any) is loaded as the trust store instead. A
// standalone client role with neither has nothing to verify against and
// must run with InsecureLocal set.
func BuildClientTLSConfig(cfg config.TLSConfig, peerCert *tls.Certificate) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		NextProtos: []string{DezapALPN},
		ServerName: cfg.ServerName,
	}

	if cfg.InsecureLocal {
		tlsCfg.InsecureSkipVerify = true
		return tlsCfg, nil
	}

	switch {
	case peerCert != nil:
		pool := x509.NewCertPool()
		leaf, err := x509.ParseCertificate(peerCert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("parse peer certificate: %w", err)
		}
		pool.AddCert(leaf)
		tlsCfg.RootCAs = pool
	case cfg.CertPath != nil:
		pemBytes, err := os.ReadFile(*cfg.CertPath)
		if err != nil {
			return nil, fmt.Errorf("read trust store %s: %w", *cfg.CertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("no certificates found in trust store %s", *cfg.CertPath)
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// generateSelfSigned mints a fresh ed25519 keypair and a certificate valid
// for the configured name plus the loopback addresses, so peers on the same
// LAN and local test harnesses both verify cleanly when InsecureLocal is
// false.
func generateSelfSigned(serverName string) (tls.Certificate, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: serverName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{serverName, "localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, pub, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})

	return tls.X509KeyPair(certPEM, keyPEM)
}
