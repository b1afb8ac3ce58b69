// internal/poller/builder.go
package poller

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/backoff"
	cfg "github.com/tamzrod/opcua-replicator/internal/config"
	"github.com/tamzrod/opcua-replicator/internal/logging"
	"github.com/tamzrod/opcua-replicator/internal/resolver"
	"github.com/tamzrod/opcua-replicator/internal/session"
	"github.com/tamzrod/opcua-replicator/internal/session/uaclient"
)

// Build constructs an Engine and its session manager from validated config.
// Nothing is dialed here; Engine.Start performs the first connect.
func Build(c *cfg.Config, log zerolog.Logger, opts ...Option) (*Engine, *session.Manager, error) {
	ep, err := session.ParseEndpoint(c.Source.Endpoint)
	if err != nil {
		return nil, nil, err
	}

	mgr := session.NewManager(
		uaclient.Dialer{Log: logging.Component(log, "uaclient")},
		session.Options{
			SecurityPolicy:    c.Source.SecurityPolicy,
			SecurityMode:      c.Source.SecurityMode,
			CertificatePolicy: session.CertificatePolicy(c.Source.CertificatePolicy),
			CertificateFile:   c.Source.CertificateFile,
			PrivateKeyFile:    c.Source.PrivateKeyFile,
			RequestTimeout:    ms(c.Source.RequestTimeoutMs),
			SessionTimeout:    ms(c.Source.SessionTimeoutMs),
			ApplicationName:   c.Source.ApplicationName,
		},
		logging.Component(log, "session"),
	)

	tags := make([]resolver.Tag, 0, len(c.Tags))
	for _, t := range c.Tags {
		tags = append(tags, resolver.Tag{
			NamespaceURI: t.NamespaceURI,
			Name:         t.Name,
			LogicalName:  t.LogicalName,
		})
	}

	opts = append([]Option{WithLogger(logging.Component(log, "poller"))}, opts...)
	e, err := New(
		Config{
			Endpoint:       ep,
			Tags:           tags,
			Interval:       ms(c.Poll.IntervalMs),
			ReadTimeout:    ms(c.Poll.ReadTimeoutMs),
			ConnectTimeout: ms(c.Source.ConnectTimeoutMs),
			Mode:           ReadMode(c.Poll.Mode),
			Backoff: backoff.Policy{
				Initial: ms(c.Reconnect.InitialMs),
				Max:     ms(c.Reconnect.MaxMs),
			},
		},
		mgr,
		opts...,
	)
	if err != nil {
		return nil, nil, err
	}
	return e, mgr, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
