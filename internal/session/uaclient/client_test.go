// internal/session/uaclient/client_test.go
package uaclient

import (
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endpoint(url, policy string, mode ua.MessageSecurityMode, anonymous bool) *ua.EndpointDescription {
	ep := &ua.EndpointDescription{
		EndpointURL:       url,
		SecurityPolicyURI: policy,
		SecurityMode:      mode,
	}
	if anonymous {
		ep.UserIdentityTokens = []*ua.UserTokenPolicy{{TokenType: ua.UserTokenTypeAnonymous}}
	}
	return ep
}

func TestSelectEndpoint_NoneDefault(t *testing.T) {
	eps := []*ua.EndpointDescription{
		endpoint("opc.tcp://a:4840", ua.SecurityPolicyURIBasic256Sha256, ua.MessageSecurityModeSignAndEncrypt, true),
		endpoint("opc.tcp://a:4840", ua.SecurityPolicyURINone, ua.MessageSecurityModeNone, true),
	}

	got := SelectEndpoint(eps, "", "")
	require.NotNil(t, got)
	assert.Equal(t, ua.SecurityPolicyURINone, got.SecurityPolicyURI)
}

func TestSelectEndpoint_PrefersAnonymous(t *testing.T) {
	eps := []*ua.EndpointDescription{
		endpoint("opc.tcp://user-only", ua.SecurityPolicyURINone, ua.MessageSecurityModeNone, false),
		endpoint("opc.tcp://anon", ua.SecurityPolicyURINone, ua.MessageSecurityModeNone, true),
	}

	got := SelectEndpoint(eps, "None", "None")
	require.NotNil(t, got)
	assert.Equal(t, "opc.tcp://anon", got.EndpointURL)
}

func TestSelectEndpoint_SecuredMatch(t *testing.T) {
	eps := []*ua.EndpointDescription{
		endpoint("opc.tcp://a", ua.SecurityPolicyURIBasic256Sha256, ua.MessageSecurityModeSign, true),
		endpoint("opc.tcp://b", ua.SecurityPolicyURIBasic256Sha256, ua.MessageSecurityModeSignAndEncrypt, true),
	}

	got := SelectEndpoint(eps, "Basic256Sha256", "SignAndEncrypt")
	require.NotNil(t, got)
	assert.Equal(t, "opc.tcp://b", got.EndpointURL)
}

func TestSelectEndpoint_NoMatch(t *testing.T) {
	eps := []*ua.EndpointDescription{
		endpoint("opc.tcp://a", ua.SecurityPolicyURINone, ua.MessageSecurityModeNone, true),
	}

	assert.Nil(t, SelectEndpoint(eps, "Basic256Sha256", "Sign"))
	assert.Nil(t, SelectEndpoint(eps, "Rot13", "None"))
	assert.Nil(t, SelectEndpoint(eps, "None", "Loud"))
	assert.Nil(t, SelectEndpoint(nil, "None", "None"))
}

func TestPolicyURI(t *testing.T) {
	uri, ok := PolicyURI("BASIC256SHA256")
	assert.True(t, ok)
	assert.Equal(t, ua.SecurityPolicyURIBasic256Sha256, uri)

	_, ok = PolicyURI("aes512")
	assert.False(t, ok)
}
