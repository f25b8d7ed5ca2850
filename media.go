package onvif

import (
	"context"
	"time"

	"github.com/juju/errors"
)

type attemptResult int

const (
	attemptOK attemptResult = iota
	attemptNeedsResync
	attemptFailed
)

// attempt sends op once with a security header dated local clock + offset
func (c *Client) attempt(ctx context.Context, url string, op operation, creds Credentials, offset time.Duration) ([]byte, attemptResult, error) {
	var auth *AuthComponents
	if !creds.IsZero() {
		a, err := GenerateAuthComponents(creds.Username, creds.Password, offset)
		if err != nil {
			return nil, attemptFailed, err
		}
		auth = &a
	}

	resp, err := c.call(ctx, url, op, auth, creds)
	switch {
	case err == nil:
		return resp, attemptOK, nil
	case auth != nil && needsResync(err):
		return nil, attemptNeedsResync, err
	}
	return nil, attemptFailed, err
}

// needsResync reports whether err may be caused by the device rejecting
// the wsu:Created time
func needsResync(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.HasType[*SOAPFault](err)
}

// callAuthenticated sends op to serviceURL. A rejected request is sent
// once more with the header dated on the clock of the device at
// deviceURL. When that does not help the first error is returned.
func (c *Client) callAuthenticated(ctx context.Context, deviceURL, serviceURL string, op operation, creds Credentials) ([]byte, error) {
	resp, result, err := c.attempt(ctx, serviceURL, op, creds, 0)
	switch result {
	case attemptOK:
		return resp, nil
	case attemptFailed:
		return nil, err
	}

	firstErr := err
	log := c.logger().With().Str("url", StripCredentials(serviceURL)).Logger()
	log.Debug().Err(err).Msg("[onvif] request rejected, syncing to device clock")

	if err = ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	offset, err := c.ClockOffset(ctx, deviceURL)
	if err != nil {
		log.Debug().Err(err).Msg("[onvif] can't read device clock")
		return nil, firstErr
	}

	if err = ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	log.Debug().Dur("offset", offset).Msg("[onvif] retry with device clock")

	resp, result, err = c.attempt(ctx, serviceURL, op, creds, offset)
	if result != attemptOK {
		log.Debug().Err(err).Msg("[onvif] retry failed")
		return nil, firstErr
	}

	return resp, nil
}

// GetProfiles returns the media profiles of a camera
func (c *Client) GetProfiles(ctx context.Context, deviceURL string, creds Credentials) ([]MediaProfile, error) {
	mediaURL := c.ResolveMediaURL(ctx, deviceURL, creds)

	resp, err := c.callAuthenticated(ctx, deviceURL, mediaURL, getProfiles, creds)
	if err != nil {
		return nil, errors.Annotate(err, "GetProfiles")
	}

	profiles := ParseProfilesResponse(resp)
	if len(profiles) == 0 {
		return nil, newKindError(ErrNoProfiles, "onvif: %s has no media profiles", StripCredentials(deviceURL))
	}

	return profiles, nil
}

// GetStreamURI retrieves the RTSP stream URI for a given profile token.
// The returned URI carries creds.
func (c *Client) GetStreamURI(ctx context.Context, deviceURL string, creds Credentials, profileToken string) (string, error) {
	mediaURL := c.ResolveMediaURL(ctx, deviceURL, creds)

	resp, err := c.callAuthenticated(ctx, deviceURL, mediaURL, getStreamUri(profileToken), creds)
	if err != nil {
		return "", errors.Annotate(err, "GetStreamUri")
	}

	uri, ok := ParseStreamURIResponse(resp)
	if !ok {
		return "", newKindError(ErrStreamURI, "onvif: no stream URI for profile %s", profileToken)
	}

	return EmbedCredentials(NormalizeStreamURI(uri), creds), nil
}

// OpenStream resolves the RTSP URI of the main or the sub stream
func (c *Client) OpenStream(ctx context.Context, deviceURL string, creds Credentials, quality StreamQuality) (StreamInfo, error) {
	profiles, err := c.GetProfiles(ctx, deviceURL, creds)
	if err != nil {
		return StreamInfo{}, err
	}

	profile, _ := SelectProfile(profiles, quality)
	return c.streamInfo(ctx, deviceURL, creds, quality, profile)
}

// GetStreams resolves both streams with a single GetProfiles
func (c *Client) GetStreams(ctx context.Context, deviceURL string, creds Credentials) (StreamSet, error) {
	profiles, err := c.GetProfiles(ctx, deviceURL, creds)
	if err != nil {
		return StreamSet{}, err
	}

	var set StreamSet

	main, _ := SelectMainProfile(profiles)
	if set.Main, err = c.streamInfo(ctx, deviceURL, creds, MainStream, main); err != nil {
		return StreamSet{}, err
	}

	sub, _ := SelectSubProfile(profiles)
	if sub.Token == main.Token {
		set.Sub = set.Main
		set.Sub.Quality = SubStream
		return set, nil
	}
	if set.Sub, err = c.streamInfo(ctx, deviceURL, creds, SubStream, sub); err != nil {
		return StreamSet{}, err
	}

	return set, nil
}

func (c *Client) streamInfo(ctx context.Context, deviceURL string, creds Credentials, quality StreamQuality, profile MediaProfile) (StreamInfo, error) {
	uri, err := c.GetStreamURI(ctx, deviceURL, creds, profile.Token)
	if err != nil {
		return StreamInfo{}, err
	}

	c.logger().Debug().Str("quality", string(quality)).Str("profile", profile.Token).
		Str("uri", StripCredentials(uri)).Msg("[onvif] stream resolved")

	return StreamInfo{Quality: quality, Profile: profile, URI: uri}, nil
}
