// internal/writer/mqtt/codec.go
package mqtt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/tamzrod/opcua-replicator/internal/cache"
)

// Message is the payload published for one tag.
type Message struct {
	Tag       string   `json:"tag" cbor:"1,keyasint"`
	Value     *float64 `json:"value" cbor:"2,keyasint"`
	Freshness string   `json:"freshness" cbor:"3,keyasint"`

	// milliseconds since epoch
	Timestamp       int64 `json:"ts" cbor:"4,keyasint"`
	SourceTimestamp int64 `json:"source_ts,omitempty" cbor:"5,keyasint,omitempty"`

	Status uint32 `json:"status,omitempty" cbor:"6,keyasint,omitempty"`
}

// FromEntry builds the message for e. Value is nil until the tag has
// produced its first good reading.
func FromEntry(e cache.Entry) Message {
	m := Message{
		Tag:       e.Name,
		Freshness: e.Freshness().String(),
		Timestamp: e.UpdatedAt.UnixMilli(),
	}
	if e.HasValue {
		v := e.Sample.Value
		m.Value = &v
		m.Timestamp = e.Sample.Timestamp.UnixMilli()
		if !e.Sample.SourceTimestamp.IsZero() {
			m.SourceTimestamp = e.Sample.SourceTimestamp.UnixMilli()
		}
	}
	if e.LastFailure != nil {
		m.Status = e.LastFailure.Status
	}
	return m
}

// Codec marshals messages for the wire.
type Codec interface {
	ContentType() string
	Marshal(m Message) ([]byte, error)
}

type jsonCodec struct{ api jsoniter.API }

func (jsonCodec) ContentType() string { return "application/json" }

func (c jsonCodec) Marshal(m Message) ([]byte, error) { return c.api.Marshal(m) }

type cborCodec struct{ em cbor.EncMode }

func (cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) Marshal(m Message) ([]byte, error) { return c.em.Marshal(m) }

// NewCodec returns the codec for format: json (default) or cbor.
func NewCodec(format string) (Codec, error) {
	switch format {
	case "", "json":
		return jsonCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}, nil
	case "cbor":
		em, err := cbor.EncOptions{
			Sort:        cbor.SortCanonical,
			IndefLength: cbor.IndefLengthForbidden,
		}.EncMode()
		if err != nil {
			return nil, fmt.Errorf("mqtt: cbor mode: %w", err)
		}
		return cborCodec{em: em}, nil
	default:
		return nil, fmt.Errorf("mqtt: unknown format %q", format)
	}
}
