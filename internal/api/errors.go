package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	onvif "github.com/SridarDhandapani/onvif-media"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// describe maps an error to the status and message shown to the user
func describe(err error) (int, string) {
	switch {
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound, err.Error()
	}

	switch onvif.ErrorKind(err) {
	case "authentication":
		return http.StatusUnauthorized, "wrong username or password"
	case "timeout":
		return http.StatusGatewayTimeout, "camera did not answer in time, check camera IP/reachability"
	case "no_profiles":
		return http.StatusUnprocessableEntity, "camera exposes no streaming profiles"
	case "stream_uri":
		return http.StatusBadGateway, "camera returned no stream address"
	case "network", "parsing":
		return http.StatusBadGateway, err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}

func (s *Server) fail(c *gin.Context, err error) {
	status, msg := describe(err)

	event := s.log.Debug()
	if status >= http.StatusInternalServerError {
		event = s.log.Warn()
	}
	event.Err(err).Str("id", c.GetString(requestIDKey)).Msg("[api] " + c.Request.URL.Path)

	kind := onvif.ErrorKind(err)
	if kind == "unknown" {
		kind = ""
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Error:     msg,
		Kind:      kind,
		RequestID: c.GetString(requestIDKey),
	})
}
