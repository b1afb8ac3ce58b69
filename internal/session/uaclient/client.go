// internal/session/uaclient/client.go
package uaclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/session"
)

// Dialer implements session.Dialer on top of gopcua.
// One Dial = one discovery + one connect. No retries, no auto-reconnect.
type Dialer struct {
	Log zerolog.Logger
}

// Dial discovers the server endpoints, selects one and activates a session.
func (d Dialer) Dial(ctx context.Context, ep session.Endpoint, o session.Options) (session.Conn, error) {
	url := ep.String()

	endpoints, err := opcua.GetEndpoints(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("get endpoints: %w", err)
	}

	sel := SelectEndpoint(endpoints, o.SecurityPolicy, o.SecurityMode)
	if sel == nil {
		return nil, fmt.Errorf("policy=%s mode=%s: %w", o.SecurityPolicy, o.SecurityMode, session.ErrNoMatchingEndpoint)
	}

	opts := []opcua.Option{
		opcua.SecurityFromEndpoint(sel, ua.UserTokenTypeAnonymous),
		opcua.RequestTimeout(o.RequestTimeout),
		opcua.SessionTimeout(o.SessionTimeout),
		opcua.AutoReconnect(false),
	}
	if o.ApplicationName != "" {
		opts = append(opts, opcua.ApplicationName(o.ApplicationName))
	}

	if sel.SecurityPolicyURI != ua.SecurityPolicyURINone {
		// server certificate comes from the advertised endpoint unverified
		d.Log.Warn().
			Str("endpoint", url).
			Str("certificate_policy", string(o.CertificatePolicy)).
			Msg("server certificate accepted without trust-store validation")
		opts = append(opts,
			opcua.CertificateFile(o.CertificateFile),
			opcua.PrivateKeyFile(o.PrivateKeyFile),
		)
	}

	// Servers often advertise an internal hostname; keep the configured one.
	connectURL := sel.EndpointURL
	if connectURL != url {
		d.Log.Debug().Str("advertised", connectURL).Str("configured", url).Msg("using configured endpoint url")
		connectURL = url
	}

	c, err := opcua.NewClient(connectURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	if err := c.Connect(ctx); err != nil {
		// release half-open channels so retries do not exhaust server sessions
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("connect: %w", err)
	}

	return c, nil
}

var policyURIs = map[string]string{
	"none":           ua.SecurityPolicyURINone,
	"basic128rsa15":  ua.SecurityPolicyURIBasic128Rsa15,
	"basic256":       ua.SecurityPolicyURIBasic256,
	"basic256sha256": ua.SecurityPolicyURIBasic256Sha256,
}

// PolicyURI maps a short policy name to its URI. Empty means None.
func PolicyURI(name string) (string, bool) {
	if name == "" {
		return ua.SecurityPolicyURINone, true
	}
	uri, ok := policyURIs[strings.ToLower(name)]
	return uri, ok
}

// SecurityMode maps a short mode name to its enum. Empty means None.
func SecurityMode(name string) (ua.MessageSecurityMode, bool) {
	switch strings.ToLower(name) {
	case "", "none":
		return ua.MessageSecurityModeNone, true
	case "sign":
		return ua.MessageSecurityModeSign, true
	case "signandencrypt":
		return ua.MessageSecurityModeSignAndEncrypt, true
	default:
		return ua.MessageSecurityModeInvalid, false
	}
}

// SelectEndpoint picks the advertised endpoint matching policy and mode.
// Returns nil when nothing matches.
func SelectEndpoint(endpoints []*ua.EndpointDescription, policy, mode string) *ua.EndpointDescription {
	uri, ok := PolicyURI(policy)
	if !ok {
		return nil
	}
	m, ok := SecurityMode(mode)
	if !ok {
		return nil
	}

	var best *ua.EndpointDescription
	for _, ep := range endpoints {
		if ep == nil || ep.SecurityPolicyURI != uri || ep.SecurityMode != m {
			continue
		}
		// prefer endpoints advertising anonymous login
		if best == nil || (!allowsAnonymous(best) && allowsAnonymous(ep)) {
			best = ep
		}
	}
	return best
}

func allowsAnonymous(ep *ua.EndpointDescription) bool {
	for _, t := range ep.UserIdentityTokens {
		if t != nil && t.TokenType == ua.UserTokenTypeAnonymous {
			return true
		}
	}
	return false
}
