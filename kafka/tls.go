package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pilosa/datalake"
	"github.com/pkg/errors"
)

// TLSConfig contains the TLS settings for connecting to brokers.
type TLSConfig struct {
	// TlsCertPath contains the path to the client certificate (.crt or .pem
	// file)
	TlsCertPath string `help:"Path to client certificate file for TLS to Kafka."`
	// TlsKeyPath contains the path to the certificate key (.key file)
	TlsKeyPath string `help:"Path to client certificate key file."`
	// TlsCaPath is the path to a CA certificate (.crt or .pem file)
	TlsCaPath string `help:"Path to CA certificate file. Setting this alone enables TLS without a client certificate."`
	// TlsSkipVerify disables verification of server certificates.
	TlsSkipVerify bool `help:"Disables verification of broker certificates."`
}

// Enabled reports whether any TLS setting is given.
func (c TLSConfig) Enabled() bool {
	return c.TlsCertPath != "" || c.TlsCaPath != "" || c.TlsSkipVerify
}

type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

// newKeypairReloader loads the keypair and reloads it on SIGHUP until ctx is
// done.
func newKeypairReloader(ctx context.Context, certPath, keyPath string, log datalake.Logger) (*keypairReloader, error) {
	result := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	if err := result.reload(); err != nil {
		return nil, err
	}
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGHUP)
		defer signal.Stop(c)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c:
				log.Printf("received SIGHUP, reloading TLS certificate and key from %q and %q", certPath, keyPath)
				if err := result.reload(); err != nil {
					log.Printf("keeping old TLS certificate because the new one could not be loaded: %v", err)
				}
			}
		}
	}()
	return result, nil
}

func (kpr *keypairReloader) reload() error {
	newCert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return errors.Wrap(err, "loading keypair")
	}
	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()
	kpr.cert = &newCert
	return nil
}

func (kpr *keypairReloader) getClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	kpr.certMu.RLock()
	defer kpr.certMu.RUnlock()
	return kpr.cert, nil
}

// Config returns the tls.Config for c, or nil if TLS isn't enabled.
func (c TLSConfig) Config(ctx context.Context, log datalake.Logger) (*tls.Config, error) {
	if !c.Enabled() {
		return nil, nil
	}
	cfg := &tls.Config{
		InsecureSkipVerify: c.TlsSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if c.TlsCertPath != "" {
		if c.TlsKeyPath == "" {
			return nil, errors.New("certificate key path must be set with certificate path")
		}
		kpr, err := newKeypairReloader(ctx, c.TlsCertPath, c.TlsKeyPath, log)
		if err != nil {
			return nil, err
		}
		cfg.GetClientCertificate = kpr.getClientCertificate
	}
	if c.TlsCaPath != "" {
		b, err := ioutil.ReadFile(c.TlsCaPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading tls ca certificate")
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(b) {
			return nil, errors.New("error parsing CA certificate")
		}
		cfg.RootCAs = certPool
	}
	return cfg, nil
}
