// internal/api/handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type valueView struct {
	Name            string     `json:"name"`
	Value           *float64   `json:"value"`
	Freshness       string     `json:"freshness"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	SourceTimestamp *time.Time `json:"source_timestamp,omitempty"`
	Status          uint32     `json:"status,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func toView(e cache.Entry) valueView {
	v := valueView{
		Name:      e.Name,
		Freshness: e.Freshness().String(),
	}
	if e.HasValue {
		val := e.Sample.Value
		ts := e.Sample.Timestamp
		v.Value = &val
		v.Timestamp = &ts
		if !e.Sample.SourceTimestamp.IsZero() {
			src := e.Sample.SourceTimestamp
			v.SourceTimestamp = &src
		}
	}
	if f := e.LastFailure; f != nil {
		v.Status = f.Status
		v.Error = f.Description
	}
	return v
}

type deviceView struct {
	Health         string `json:"health"`
	LastStatusCode uint32 `json:"last_status_code"`
	SecondsInError uint16 `json:"seconds_in_error"`
	Reconnects     uint16 `json:"reconnects"`
	FreshTags      uint16 `json:"fresh_tags"`
}

type healthView struct {
	Status         string      `json:"status"`
	State          string      `json:"state"`
	SessionHealthy bool        `json:"session_healthy"`
	Device         *deviceView `json:"device,omitempty"`
}

func render(c *gin.Context, code int, body interface{}) {
	b, err := json.Marshal(body)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(code, "application/json; charset=utf-8", b)
}

func (s *Server) listValues(c *gin.Context) {
	all := s.deps.Values.GetAll()

	out := make([]valueView, 0, len(all))
	for _, name := range cache.SortedNames(all) {
		out = append(out, toView(all[name]))
	}
	render(c, http.StatusOK, out)
}

func (s *Server) getValue(c *gin.Context) {
	name := c.Param("name")
	e, ok := s.deps.Values.Get(name)
	if !ok {
		render(c, http.StatusNotFound, gin.H{"error": "unknown tag", "name": name})
		return
	}
	render(c, http.StatusOK, toView(e))
}

func (s *Server) healthz(c *gin.Context) {
	healthy := s.deps.Engine.Healthy()

	h := healthView{
		Status:         "ok",
		State:          s.deps.Engine.State().String(),
		SessionHealthy: healthy,
	}
	if s.deps.Device != nil {
		snap := s.deps.Device.Status()
		h.Device = &deviceView{
			Health:         status.HealthName(snap.Health),
			LastStatusCode: snap.LastStatusCode,
			SecondsInError: snap.SecondsInError,
			Reconnects:     snap.Reconnects,
			FreshTags:      snap.FreshTags,
		}
	}

	code := http.StatusOK
	if !healthy {
		h.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	render(c, code, h)
}
