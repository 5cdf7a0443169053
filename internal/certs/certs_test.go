package certs

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestFileManager_GetOrCreate(t *testing.T) {
	tests := []struct {
		setup      func(t *testing.T, m *FileManager)
		name       string
		regenerate bool
	}{
		{
			name:       "creates a certificate when none exists",
			setup:      func(*testing.T, *FileManager) {},
			regenerate: true,
		},
		{
			name: "reuses a valid certificate",
			setup: func(t *testing.T, m *FileManager) {
				t.Helper()
				_, err := m.GetOrCreate()
				require.NoError(t, err)
			},
		},
		{
			name: "regenerates unreadable files",
			setup: func(t *testing.T, m *FileManager) {
				t.Helper()
				require.NoError(t, os.MkdirAll(m.dir, 0700))
				certFile, keyFile := m.Paths()
				require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0600))
				require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0600))
			},
			regenerate: true,
		},
		{
			name: "regenerates a certificate close to expiry",
			setup: func(t *testing.T, m *FileManager) {
				t.Helper()
				m.validity = 24 * time.Hour
				_, err := m.GetOrCreate()
				require.NoError(t, err)
				m.validity = DefaultValidity
			},
			regenerate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFileManager(t.TempDir() + "/certs")
			tt.setup(t, m)

			certFile, _ := m.Paths()
			before, _ := os.ReadFile(certFile)

			cert, err := m.GetOrCreate()
			require.NoError(t, err)

			parsed := parse(t, cert)
			assert.Equal(t, []string{"halpa"}, parsed.Subject.Organization)
			require.NoError(t, parsed.VerifyHostname("localhost"))
			require.NoError(t, parsed.VerifyHostname("127.0.0.1"))
			assert.True(t, parsed.NotAfter.After(time.Now().Add(300*24*time.Hour)))

			after, err := os.ReadFile(certFile)
			require.NoError(t, err)
			if tt.regenerate {
				assert.NotEqual(t, before, after)
			} else {
				assert.Equal(t, before, after)
			}
		})
	}
}

func TestFileManager_ExtraHosts(t *testing.T) {
	dir := t.TempDir()

	first := NewFileManager(dir)
	_, err := first.GetOrCreate()
	require.NoError(t, err)

	// A new host invalidates the stored certificate.
	second := NewFileManager(dir, "halpa.lan", "192.168.1.20", "localhost")
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1", "halpa.lan", "192.168.1.20"}, second.hosts)

	cert, err := second.GetOrCreate()
	require.NoError(t, err)
	parsed := parse(t, cert)
	assert.NoError(t, parsed.VerifyHostname("halpa.lan"))
	assert.NoError(t, parsed.VerifyHostname("192.168.1.20"))
	assert.Contains(t, parsed.DNSNames, "localhost")
}

func TestFileManager_Verify(t *testing.T) {
	m := NewFileManager(t.TempDir())
	cert, err := m.GetOrCreate()
	require.NoError(t, err)

	assert.NoError(t, m.verify(cert))
	assert.Error(t, m.verify(tls.Certificate{}))

	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	assert.ErrorContains(t, m.verify(cert), "not yet valid")

	m.now = func() time.Time { return time.Now().Add(360 * 24 * time.Hour) }
	assert.ErrorContains(t, m.verify(cert), "expires soon")
}

type failingManager struct{ err error }

func (f failingManager) GetOrCreate() (tls.Certificate, error) {
	return tls.Certificate{}, f.err
}

func TestTLSConfig(t *testing.T) {
	cfg, err := TLSConfig(NewFileManager(t.TempDir()))
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)

	_, err = TLSConfig(failingManager{err: errors.New("disk full")})
	assert.ErrorContains(t, err, "disk full")
}
