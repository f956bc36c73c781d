package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// loadCertificate reads certFile/keyFile if both exist. It returns
// (nil, nil) when either is missing, in which case the launcher falls back
// to ACME or to a generated self-signed certificate.
func loadCertificate(certFile, keyFile string) (*tls.Certificate, error) {
	if !fileExists(certFile) || !fileExists(keyFile) {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}

	return &cert, nil
}

// autocertManager builds an autocert.Manager backed by Let's Encrypt,
// caching issued certificates under cacheDir. Callers use its
// GetCertificate hook rather than a static certificate, since the cert
// rotates.
func autocertManager(cacheDir string, domains ...string) *autocert.Manager {
	m := &autocert.Manager{Prompt: autocert.AcceptTOS}

	if len(domains) > 0 {
		m.HostPolicy = autocert.HostWhitelist(domains...)
	}

	if err := os.MkdirAll(cacheDir, 0700); err == nil {
		m.Cache = autocert.DirCache(cacheDir)
	}

	return m
}

// generateSelfSignedCert writes a long-lived localhost certificate/key pair
// under dir if one doesn't already exist there, for domain-less local runs.
func generateSelfSignedCert(dir string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(dir, "localhost.crt")
	keyFile = filepath.Join(dir, "localhost.key")

	if fileExists(certFile) && fileExists(keyFile) {
		return certFile, keyFile, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", "", err
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", "", err
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"hearth"}},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return "", "", err
	}

	out, err := os.Create(certFile)
	if err != nil {
		return "", "", err
	}
	defer out.Close()

	if err := pem.Encode(out, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		return "", "", err
	}

	keyOut, err := os.Create(keyFile)
	if err != nil {
		return "", "", err
	}
	defer keyOut.Close()

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", err
	}

	if err := pem.Encode(keyOut, &pem.Block{Type: "PRIVATE KEY", Bytes: privBytes}); err != nil {
		return "", "", err
	}

	return certFile, keyFile, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func certFingerprint(cert *tls.Certificate) string {
	if cert == nil || len(cert.Certificate) == 0 {
		return ""
	}

	return fmt.Sprintf("%x", cert.Certificate[0][:8])
}
