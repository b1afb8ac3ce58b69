// internal/resolver/resolver_test.go
package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/gopcua/opcua/ua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	table []string
	err   error
	calls int
}

func (f *fakeLookup) NamespaceArray(ctx context.Context) ([]string, error) {
	f.calls++
	return f.table, f.err
}

const robotNS = "http://example.com/robot1"

func TestResolveNamespace(t *testing.T) {
	l := &fakeLookup{table: []string{"http://opcfoundation.org/UA/", "urn:server", robotNS}}

	idx, err := ResolveNamespace(context.Background(), l, robotNS)
	require.NoError(t, err)
	assert.Equal(t, NamespaceIndex(2), idx)
}

func TestResolveNamespace_NotFound(t *testing.T) {
	l := &fakeLookup{table: []string{"http://opcfoundation.org/UA/"}}

	_, err := ResolveNamespace(context.Background(), l, robotNS)

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NamespaceNotFound, re.Kind)
	assert.Equal(t, robotNS, re.URI)
	assert.Equal(t, uint32(ua.StatusBadNodeIDUnknown), re.StatusCode())
}

func TestResolveNamespace_LookupFailed(t *testing.T) {
	cause := errors.New("channel closed")
	l := &fakeLookup{err: cause}

	_, err := ResolveNamespace(context.Background(), l, robotNS)

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, LookupFailed, re.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestResolveNode(t *testing.T) {
	n := ResolveNode(3, "R1d_Joi1")

	assert.Equal(t, "ns=3;s=R1d_Joi1", n.String())
	assert.Equal(t, ua.NewStringNodeID(3, "R1d_Joi1").String(), n.UA().String())
	assert.Equal(t, n, ResolveNode(3, "R1d_Joi1"))
}

func TestResolveAll(t *testing.T) {
	l := &fakeLookup{table: []string{"http://opcfoundation.org/UA/", "urn:other", robotNS}}
	tags := []Tag{
		{NamespaceURI: robotNS, Name: "R1d_Joi1", LogicalName: "joint1"},
		{NamespaceURI: "urn:other", Name: "Temp", LogicalName: "temp"},
		{NamespaceURI: robotNS, Name: "R1d_Joi2", LogicalName: "joint2"},
	}

	got, err := ResolveAll(context.Background(), l, tags)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, NodeID{Namespace: 2, Name: "R1d_Joi1"}, got[0].Node)
	assert.Equal(t, NodeID{Namespace: 1, Name: "Temp"}, got[1].Node)
	assert.Equal(t, NodeID{Namespace: 2, Name: "R1d_Joi2"}, got[2].Node)
	assert.Equal(t, "joint2", got[2].Tag.LogicalName)

	// one namespace table read per resolution pass
	assert.Equal(t, 1, l.calls)
}

func TestResolveAll_ReassignedIndices(t *testing.T) {
	tags := []Tag{{NamespaceURI: robotNS, Name: "R1d_Joi1", LogicalName: "joint1"}}

	before, err := ResolveAll(context.Background(), &fakeLookup{table: []string{"a", robotNS}}, tags)
	require.NoError(t, err)
	after, err := ResolveAll(context.Background(), &fakeLookup{table: []string{"a", "b", "c", robotNS}}, tags)
	require.NoError(t, err)

	assert.Equal(t, NamespaceIndex(1), before[0].Node.Namespace)
	assert.Equal(t, NamespaceIndex(3), after[0].Node.Namespace)
}

func TestResolveAll_MissingNamespace(t *testing.T) {
	l := &fakeLookup{table: []string{"a"}}
	_, err := ResolveAll(context.Background(), l, []Tag{{NamespaceURI: robotNS, Name: "x", LogicalName: "x"}})

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NamespaceNotFound, re.Kind)
}

func TestResolveAll_Empty(t *testing.T) {
	l := &fakeLookup{}
	got, err := ResolveAll(context.Background(), l, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, l.calls)
}
