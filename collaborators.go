package onvif

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// PlaybackHandle identifies one stream opened by a MediaPlayer
type PlaybackHandle string

// ErrorEvent is a playback failure reported by a MediaPlayer
type ErrorEvent struct {
	Handle  PlaybackHandle
	Message string
	Err     error
}

func (e ErrorEvent) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// MediaPlayer plays an RTSP stream. Decoding and rendering are up to the
// implementation.
type MediaPlayer interface {
	OpenStream(ctx context.Context, uri string) (PlaybackHandle, error)
	PlaybackErrors(h PlaybackHandle) <-chan ErrorEvent
	Release(h PlaybackHandle) error
}

// PlayStream opens uri on player and forwards playback errors to onError
// until ctx is done or the player closes the error channel. The stream
// is always released.
func PlayStream(ctx context.Context, player MediaPlayer, uri string, onError func(ErrorEvent)) error {
	h, err := player.OpenStream(ctx, uri)
	if err != nil {
		return errors.Annotatef(err, "onvif: open stream %s", StripCredentials(uri))
	}

	defer func() {
		if err := player.Release(h); err != nil {
			GetLogger().Debug().Err(err).Str("handle", string(h)).Msg("[onvif] release stream")
		}
	}()

	events := player.PlaybackErrors(h)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(ev)
			}
		}
	}
}

// CameraRecord is a saved camera. URIs are stored without credentials.
type CameraRecord struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Manufacturer string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Model        string    `json:"model,omitempty" yaml:"model,omitempty"`
	ServiceURL   string    `json:"service_url" yaml:"service_url"`
	IPAddress    string    `json:"ip_address" yaml:"ip_address"`
	Username     string    `json:"username,omitempty" yaml:"username,omitempty"`
	MainStream   string    `json:"main_stream,omitempty" yaml:"main_stream,omitempty"`
	SubStream    string    `json:"sub_stream,omitempty" yaml:"sub_stream,omitempty"`
	SavedAt      time.Time `json:"saved_at" yaml:"saved_at"`
}

// NewCameraRecord builds the record of a device and its resolved streams
func NewCameraRecord(dev Device, creds Credentials, streams StreamSet) CameraRecord {
	return CameraRecord{
		ID:           dev.ID,
		Name:         dev.DisplayName(),
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		ServiceURL:   dev.ServiceURL,
		IPAddress:    dev.IPAddress,
		Username:     creds.Username,
		MainStream:   StripCredentials(streams.Main.URI),
		SubStream:    StripCredentials(streams.Sub.URI),
		SavedAt:      now().UTC(),
	}
}

// Store keeps camera records keyed by id
type Store interface {
	Save(ctx context.Context, rec CameraRecord) error
	LoadAll(ctx context.Context) ([]CameraRecord, error)
	DeleteByID(ctx context.Context, id string) error
}
