package tls

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/iot-go-sdk/simulated-device/pkg/errors"
)

// LoadCACert returns a pool holding the PEM certificates at path. An
// empty path yields the system roots.
func LoadCACert(path string) (*x509.CertPool, error) {
	if path == "" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, errors.Wrap(errors.ErrLoadCACert, err)
		}
		return pool, nil
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrLoadCACert, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Newf(errors.ErrLoadCACert, "no certificates found in %s", path)
	}
	return pool, nil
}

// ClientConfig builds the TLS settings for the hub connection.
func ClientConfig(serverName, caCertPath string, skipVerify bool) (*tls.Config, error) {
	pool, err := LoadCACert(caCertPath)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		ServerName:         serverName,
		RootCAs:            pool,
		InsecureSkipVerify: skipVerify,
		MinVersion:         tls.VersionTLS12,
	}, nil
}
