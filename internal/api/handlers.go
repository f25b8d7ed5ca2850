package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	onvif "github.com/SridarDhandapani/onvif-media"
)

// deviceRequest addresses one camera with its account
type deviceRequest struct {
	ServiceURL string              `json:"service_url"`
	Username   string              `json:"username"`
	Password   string              `json:"password"`
	Quality    onvif.StreamQuality `json:"quality,omitempty"`
}

func (r deviceRequest) creds() onvif.Credentials {
	return onvif.Credentials{Username: r.Username, Password: r.Password}
}

func bindDevice(c *gin.Context) (deviceRequest, error) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, errors.NewBadRequest(err, "invalid body")
	}
	if req.ServiceURL == "" {
		return req, errors.BadRequestf("service_url is required")
	}
	switch req.Quality {
	case "", onvif.MainStream, onvif.SubStream:
	default:
		return req, errors.BadRequestf("quality %q", req.Quality)
	}
	return req, nil
}

func (s *Server) discover(c *gin.Context) {
	opts := s.discovery

	if q := c.Query("timeout"); q != "" {
		timeout, err := time.ParseDuration(q)
		if err != nil || timeout <= 0 || timeout > MaxDiscoveryTimeout {
			s.fail(c, errors.BadRequestf("timeout %q", q))
			return
		}
		opts.Timeout = timeout
	}

	devices := onvif.DiscoverDevices(c.Request.Context(), &opts)
	if devices == nil {
		devices = []onvif.Device{}
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (s *Server) profiles(c *gin.Context) {
	req, err := bindDevice(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	profiles, err := s.client.GetProfiles(c.Request.Context(), req.ServiceURL, req.creds())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// streams resolves one stream when quality is set, else both
func (s *Server) streams(c *gin.Context) {
	req, err := bindDevice(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()

	if req.Quality != "" {
		info, err := s.client.OpenStream(ctx, req.ServiceURL, req.creds(), req.Quality)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
		return
	}

	streams, err := s.client.GetStreams(ctx, req.ServiceURL, req.creds())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, streams)
}

func (s *Server) listCameras(c *gin.Context) {
	records, err := s.store.LoadAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if records == nil {
		records = []onvif.CameraRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"cameras": records})
}

type saveRequest struct {
	Device   onvif.Device `json:"device"`
	Username string       `json:"username"`
	Password string       `json:"password"`
}

// saveCamera resolves both streams of the device before saving it, so a
// camera is only saved with a working account
func (s *Server) saveCamera(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, errors.NewBadRequest(err, "invalid body"))
		return
	}

	dev := req.Device
	if dev.ServiceURL == "" {
		s.fail(c, errors.BadRequestf("device.service_url is required"))
		return
	}
	if dev.ID == "" {
		dev.ID = onvif.DeviceID(dev.ServiceURL)
	}
	if dev.IPAddress == "" {
		dev.IPAddress = onvif.ExtractIPFromURL(dev.ServiceURL)
	}

	creds := onvif.Credentials{Username: req.Username, Password: req.Password}
	ctx := c.Request.Context()

	streams, err := s.client.GetStreams(ctx, dev.ServiceURL, creds)
	if err != nil {
		s.fail(c, err)
		return
	}

	rec := onvif.NewCameraRecord(dev, creds, streams)
	if err = s.store.Save(ctx, rec); err != nil {
		s.fail(c, err)
		return
	}

	s.log.Info().Str("id", rec.ID).Str("name", rec.Name).Msg("[api] camera saved")
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) deleteCamera(c *gin.Context) {
	if err := s.store.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
