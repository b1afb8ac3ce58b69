// internal/resolver/resolver.go
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/gopcua/opcua/ua"
)

// NamespaceIndex is the server-assigned index of a namespace URI.
// Valid for one session only.
type NamespaceIndex uint16

// NodeID is a (namespace index, symbolic name) pair.
type NodeID struct {
	Namespace NamespaceIndex
	Name      string
}

// UA builds the wire node id (string identifier type).
func (n NodeID) UA() *ua.NodeID {
	return ua.NewStringNodeID(uint16(n.Namespace), n.Name)
}

func (n NodeID) String() string {
	return fmt.Sprintf("ns=%d;s=%s", n.Namespace, n.Name)
}

// Tag is one configured process variable.
type Tag struct {
	NamespaceURI string
	Name         string
	LogicalName  string
}

// Binding pairs a tag with the node id resolved for the current session.
type Binding struct {
	Tag  Tag
	Node NodeID
}

// NamespaceLookup is satisfied by *session.Session.
type NamespaceLookup interface {
	NamespaceArray(ctx context.Context) ([]string, error)
}

// ResolveErrorKind classifies resolution failures.
type ResolveErrorKind int

const (
	NamespaceNotFound ResolveErrorKind = iota
	LookupFailed
)

func (k ResolveErrorKind) String() string {
	switch k {
	case NamespaceNotFound:
		return "namespace not found"
	case LookupFailed:
		return "lookup failed"
	default:
		return fmt.Sprintf("ResolveErrorKind(%d)", int(k))
	}
}

// ResolveError is returned by ResolveNamespace and ResolveAll.
type ResolveError struct {
	Kind ResolveErrorKind
	URI  string
	Err  error
}

func (e *ResolveError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("resolver: %s: %q", e.Kind, e.URI)
	}
	return fmt.Sprintf("resolver: %s: %q: %v", e.Kind, e.URI, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// StatusCode maps the failure to an OPC UA status code.
func (e *ResolveError) StatusCode() uint32 {
	var code ua.StatusCode
	if errors.As(e.Err, &code) {
		return uint32(code)
	}
	if e.Kind == NamespaceNotFound {
		return uint32(ua.StatusBadNodeIDUnknown)
	}
	return uint32(ua.StatusBadCommunicationError)
}

// ResolveNamespace looks up the index the server currently assigns to uri.
// The namespace table is read on every call; indices may change per session.
func ResolveNamespace(ctx context.Context, l NamespaceLookup, uri string) (NamespaceIndex, error) {
	table, err := l.NamespaceArray(ctx)
	if err != nil {
		return 0, &ResolveError{Kind: LookupFailed, URI: uri, Err: err}
	}
	return indexOf(table, uri)
}

func indexOf(table []string, uri string) (NamespaceIndex, error) {
	for i, u := range table {
		if u == uri {
			return NamespaceIndex(i), nil
		}
	}
	return 0, &ResolveError{Kind: NamespaceNotFound, URI: uri}
}

// ResolveNode is pure: no network call.
func ResolveNode(idx NamespaceIndex, name string) NodeID {
	return NodeID{Namespace: idx, Name: name}
}

// ResolveAll resolves every tag against one snapshot of the namespace table.
// Output order follows tags.
func ResolveAll(ctx context.Context, l NamespaceLookup, tags []Tag) ([]Binding, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	table, err := l.NamespaceArray(ctx)
	if err != nil {
		return nil, &ResolveError{Kind: LookupFailed, URI: tags[0].NamespaceURI, Err: err}
	}

	indices := make(map[string]NamespaceIndex)
	out := make([]Binding, 0, len(tags))
	for _, t := range tags {
		idx, ok := indices[t.NamespaceURI]
		if !ok {
			idx, err = indexOf(table, t.NamespaceURI)
			if err != nil {
				return nil, err
			}
			indices[t.NamespaceURI] = idx
		}
		out = append(out, Binding{Tag: t, Node: ResolveNode(idx, t.Name)})
	}
	return out, nil
}
