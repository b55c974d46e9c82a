package quictransport

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// devALPN is the ALPN protocol offered by NewDevServerTLSConfig and
// NewDevClientTLSConfig.
// Production deployments should supply their own tls.Config with a real
// certificate chain and their own ALPN identifier instead.
const devALPN = "streamrpc-dev"

// NewDevServerTLSConfig generates a throwaway self-signed certificate valid
// for hosts/ips and returns a tls.Config suitable only for local
// development and tests — never for a deployment reachable by anyone who
// hasn't already been told to trust this exact, ephemeral key.
func NewDevServerTLSConfig(hosts ...string) (*tls.Config, error) {
	cert, err := generateSelfSignedCert(hosts)
	if err != nil {
		return nil, fmt.Errorf("quictransport: generate dev cert: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{devALPN},
	}, nil
}

// NewDevClientTLSConfig returns a tls.Config that accepts NewDevServerTLSConfig's
// self-signed certificate. insecureSkipVerify must be true unless the
// caller instead pins the dev server's exact certificate out of band.
func NewDevClientTLSConfig(insecureSkipVerify bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: insecureSkipVerify,
		NextProtos:         []string{devALPN},
	}
}

func generateSelfSignedCert(hosts []string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "streamrpc dev"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}
