package quictransport

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDevServerTLSConfigGeneratesUsableCert(t *testing.T) {
	cfg, err := NewDevServerTLSConfig("localhost", "127.0.0.1")
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	assert.NotEmpty(t, cfg.Certificates[0].Certificate)
	assert.NotNil(t, cfg.Certificates[0].PrivateKey)
	assert.Contains(t, cfg.NextProtos, devALPN)
}

func TestNewDevClientTLSConfigNextProtos(t *testing.T) {
	cfg := NewDevClientTLSConfig(true)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Contains(t, cfg.NextProtos, devALPN)
}

func TestGenerateSelfSignedCertDefaultsToLocalhost(t *testing.T) {
	cert, err := generateSelfSignedCert(nil)
	require.NoError(t, err)
	require.NotEmpty(t, cert.Certificate)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, leaf.DNSNames)
}
