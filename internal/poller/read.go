// internal/poller/read.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/resolver"
	"github.com/tamzrod/opcua-replicator/internal/session"
)

// readEach issues one request per node. A failure never blocks the others.
func (e *Engine) readEach(ctx context.Context, s *session.Session) []ReadResult {
	out := make([]ReadResult, 0, len(e.bindings))
	for _, b := range e.bindings {
		start := time.Now()
		resp, err := e.issue(ctx, s, []resolver.Binding{b})
		lat := time.Since(start)

		var r ReadResult
		switch {
		case err != nil:
			r = failed(b, classifyReadErr(err))
		case len(resp.Results) != 1:
			r = failed(b, &ReadError{Kind: BadStatus, Status: ua.StatusBadUnexpectedError,
				Err: fmt.Errorf("expected 1 result, got %d", len(resp.Results))})
		default:
			r = evaluate(b, resp.Results[0], e.now())
		}
		r.Latency = lat

		if r.Err != nil && r.Err.Kind == SessionUnavailable {
			s.Fault(r.Err)
		}
		out = append(out, r)
	}
	return out
}

// readBatch issues one request for every node and evaluates results individually.
func (e *Engine) readBatch(ctx context.Context, s *session.Session) []ReadResult {
	start := time.Now()
	resp, err := e.issue(ctx, s, e.bindings)
	lat := time.Since(start)

	var reqErr *ReadError
	switch {
	case err != nil:
		reqErr = classifyReadErr(err)
	case len(resp.Results) != len(e.bindings):
		reqErr = &ReadError{Kind: BadStatus, Status: ua.StatusBadUnexpectedError,
			Err: fmt.Errorf("expected %d results, got %d", len(e.bindings), len(resp.Results))}
	}
	if reqErr != nil && reqErr.Kind == SessionUnavailable {
		s.Fault(reqErr)
	}

	now := e.now()
	out := make([]ReadResult, 0, len(e.bindings))
	for i, b := range e.bindings {
		var r ReadResult
		if reqErr != nil {
			r = failed(b, reqErr)
		} else {
			r = evaluate(b, resp.Results[i], now)
		}
		r.Latency = lat
		out = append(out, r)
	}
	return out
}

// issue sends one read request. The read is detached from ctx cancellation
// and bounded by the read timeout, so Stop waits for it instead of tearing it.
func (e *Engine) issue(ctx context.Context, s *session.Session, bs []resolver.Binding) (*ua.ReadResponse, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ReadTimeout)
	defer cancel()

	nodes := make([]*ua.ReadValueID, 0, len(bs))
	for _, b := range bs {
		nodes = append(nodes, &ua.ReadValueID{
			NodeID:       b.Node.UA(),
			AttributeID:  ua.AttributeIDValue,
			DataEncoding: &ua.QualifiedName{},
		})
	}

	return s.Read(rctx, &ua.ReadRequest{
		MaxAge:             0,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		NodesToRead:        nodes,
	})
}

func failed(b resolver.Binding, err *ReadError) ReadResult {
	return ReadResult{Name: b.Tag.LogicalName, Node: b.Node, Err: err}
}

// evaluate turns one DataValue into a ReadResult. Only Good severity
// produces a value; Uncertain is treated as a failure.
func evaluate(b resolver.Binding, dv *ua.DataValue, now time.Time) ReadResult {
	if dv == nil {
		return failed(b, &ReadError{Kind: BadStatus, Status: ua.StatusBadNoData})
	}
	if !IsGood(dv.Status) {
		return failed(b, &ReadError{Kind: BadStatus, Status: dv.Status})
	}

	var raw any
	if dv.Value != nil {
		raw = dv.Value.Value()
	}
	v, ok := toFloat(raw)
	if !ok {
		return failed(b, &ReadError{Kind: BadStatus, Status: ua.StatusBadTypeMismatch,
			Err: fmt.Errorf("non-numeric value %T", raw)})
	}

	return ReadResult{
		Name: b.Tag.LogicalName,
		Node: b.Node,
		Sample: cache.Sample{
			Value:           v,
			Timestamp:       now,
			SourceTimestamp: dv.SourceTimestamp,
		},
	}
}

// IsGood reports whether code has Good severity (top two bits clear).
func IsGood(code ua.StatusCode) bool {
	return uint32(code)&0xC0000000 == 0
}

// classifyReadErr maps a request-level error to a ReadError.
func classifyReadErr(err error) *ReadError {
	var re *ReadError
	if errors.As(err, &re) {
		return re
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ua.StatusBadTimeout):
		return &ReadError{Kind: Timeout, Err: err}
	case session.IsConnectionLoss(err):
		return &ReadError{Kind: SessionUnavailable, Err: err}
	}

	var code ua.StatusCode
	if errors.As(err, &code) {
		return &ReadError{Kind: BadStatus, Status: code, Err: err}
	}
	return &ReadError{Kind: BadStatus, Status: ua.StatusBadCommunicationError, Err: err}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
