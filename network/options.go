package network

import (
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"time"

	"go.dedis.ch/kyber/v4"
)

type BusOption func(Bus) Bus

// WithTimeout bounds the time spent delivering a frame to each peer.
// Zero means no bound.
func WithTimeout(timeout time.Duration) BusOption {
	return func(b Bus) Bus {
		b.timeout = timeout
		return b
	}
}

// WithPipeDepth sets the number of frames queued before peers are refused.
func WithPipeDepth(depth int) BusOption {
	return func(b Bus) Bus {
		b.depth = depth
		return b
	}
}

// WithSigner signs every published frame with key.
func WithSigner(key KeyPair) BusOption {
	return func(b Bus) Bus {
		b.signer = &key
		return b
	}
}

// WithPeerKeys makes the bus refuse frames of the given ranks unless they
// carry a valid signature. Frames from ranks missing from keys are refused
// too, so the ground station needs a key of its own.
func WithPeerKeys(keys map[int]kyber.Point) BusOption {
	return func(b Bus) Bus {
		b.keys = copyMap(keys)
		return b
	}
}

func WithLogger(logger *slog.Logger) BusOption {
	return func(b Bus) Bus {
		b.logger = logger
		return b
	}
}

func WithCertificate(cert tls.Certificate) BusOption {
	return func(b Bus) Bus {
		b.tlsConfig = cloneTLS(b.tlsConfig)
		b.tlsConfig.Certificates = append(b.tlsConfig.Certificates, cert)
		b.client.Transport = &http.Transport{
			TLSClientConfig: b.tlsConfig,
		}
		addresses := copyMap(b.Addresses)
		for i := range addresses {
			addresses[i] = "https://" + addresses[i]
		}
		b.Addresses = addresses
		return b
	}
}

func WithLimitedCAs(certPool *x509.CertPool) BusOption {
	return func(b Bus) Bus {
		b.tlsConfig = cloneTLS(b.tlsConfig)
		b.tlsConfig.RootCAs = certPool
		b.tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		b.tlsConfig.ClientCAs = certPool
		b.client.Transport = &http.Transport{
			TLSClientConfig: b.tlsConfig,
		}
		return b
	}
}

func cloneTLS(c *tls.Config) *tls.Config {
	if c == nil {
		return &tls.Config{}
	}
	return c.Clone()
}
