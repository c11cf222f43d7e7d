package transport

import (
	"crypto/x509"
	"testing"

	"dezap/internal/config"
)

func TestBuildServerTLSConfig_GeneratesSelfSignedWhenNoMaterial(t *testing.T) {
	cfg := config.TLSConfig{InsecureLocal: true, ServerName: "dezap.local"}

	tc, cert, err := BuildServerTLSConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tc.Certificates) != 1 {
		t.Fatalf("expected exactly one certificate, got %d", len(tc.Certificates))
	}
	if len(cert.Certificate) == 0 {
		t.Fatal("expected a populated returned certificate")
	}
	if !tc.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify when InsecureLocal is set")
	}
}

func TestBuildClientTLSConfig_TrustsGivenPeerCert(t *testing.T) {
	cfg := config.TLSConfig{InsecureLocal: false, ServerName: "dezap.local"}

	_, serverCert, err := BuildServerTLSConfig(cfg)
	if err != nil {
		t.Fatalf("BuildServerTLSConfig: %v", err)
	}

	tc, err := BuildClientTLSConfig(cfg, &serverCert)
	if err != nil {
		t.Fatalf("BuildClientTLSConfig: %v", err)
	}
	if tc.InsecureSkipVerify {
		t.Error("did not expect InsecureSkipVerify when InsecureLocal is false")
	}
	if tc.RootCAs == nil {
		t.Fatal("expected a populated root pool trusting the peer certificate")
	}
	if len(tc.Certificates) != 0 {
		t.Errorf("expected no client certificate (no_client_auth), got %d", len(tc.Certificates))
	}

	leaf, err := x509.ParseCertificate(serverCert.Certificate[0])
	if err != nil {
		t.Fatalf("parse server cert: %v", err)
	}
	if _, err := leaf.Verify(x509.VerifyOptions{Roots: tc.RootCAs}); err != nil {
		t.Fatalf("expected client's root pool to verify the server's own leaf, got: %v", err)
	}
}

func TestBuildClientTLSConfig_NoPeerCertLeavesRootsUnset(t *testing.T) {
	cfg := config.TLSConfig{InsecureLocal: false, ServerName: "dezap.local"}

	tc, err := BuildClientTLSConfig(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.RootCAs != nil {
		t.Error("expected no root pool when neither a peer cert nor a cert_path is configured")
	}
}
