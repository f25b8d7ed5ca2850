package onvif

import (
	"context"
	"iter"
	"net"
	"slices"
	"time"

	"github.com/juju/errors"
)

func (o *DiscoveryOptions) withDefaults() DiscoveryOptions {
	var opts DiscoveryOptions
	if o != nil {
		opts = *o
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MulticastAddr == "" {
		opts.MulticastAddr = DefaultMulticastAddr
	}
	if opts.ReceiveTimeout <= 0 {
		opts.ReceiveTimeout = DefaultReceiveTimeout
	}
	return opts
}

// Discover probes the network for ONVIF cameras and yields each device
// once, as its answer arrives. The sequence ends after options.Timeout,
// when ctx is done or when the consumer stops. Every iteration runs a
// new probe. Errors end the sequence and are only logged.
func Discover(ctx context.Context, options *DiscoveryOptions) iter.Seq[Device] {
	opts := options.withDefaults()

	return func(yield func(Device) bool) {
		log := pickLogger(opts.Logger)

		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		addr, err := net.ResolveUDPAddr("udp4", opts.MulticastAddr)
		if err != nil {
			log.Warn().Err(err).Str("addr", opts.MulticastAddr).Msg("[onvif] discovery address")
			return
		}

		conn, err := listenUDP(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("[onvif] discovery")
			return
		}
		defer conn.Close()

		group := joinMulticast(conn, addr, log)
		defer group.leave()

		probe, messageID, err := NewProbe()
		if err != nil {
			log.Warn().Err(err).Msg("[onvif] discovery")
			return
		}

		if err = group.send(probe); err != nil {
			log.Warn().Err(err).Msg("[onvif] discovery")
			return
		}

		log.Debug().Str("message_id", messageID).Str("addr", addr.String()).Msg("[onvif] probe sent")

		seen := map[string]struct{}{}
		b := make([]byte, 64*1024)

		for {
			if ctx.Err() != nil {
				return
			}

			deadline := time.Now().Add(opts.ReceiveTimeout)
			if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
				deadline = d
			}
			if err = conn.SetReadDeadline(deadline); err != nil {
				log.Debug().Err(err).Msg("[onvif] discovery")
				return
			}

			n, from, err := conn.ReadFrom(b)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				log.Debug().Err(err).Msg("[onvif] discovery")
				return
			}

			var senderIP string
			if udp, ok := from.(*net.UDPAddr); ok {
				senderIP = udp.IP.String()
			}

			dev, ok := ParseProbeMatch(b[:n], senderIP)
			if !ok {
				continue
			}

			if _, ok = seen[dev.ServiceURL]; ok {
				continue
			}
			seen[dev.ServiceURL] = struct{}{}

			log.Debug().Str("url", dev.ServiceURL).Str("name", dev.Name).Msg("[onvif] device found")

			if !yield(dev) {
				return
			}
		}
	}
}

// DiscoverAsync runs Discover on its own goroutine. The channel is closed
// when discovery ends. A device nobody reads by the end of the timeout is
// dropped.
func DiscoverAsync(ctx context.Context, options *DiscoveryOptions) <-chan Device {
	ch := make(chan Device)

	opts := options.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)

	go func() {
		defer cancel()
		defer close(ch)
		for dev := range Discover(ctx, options) {
			select {
			case ch <- dev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// DiscoverDevices discovers ONVIF cameras on the network and returns them
// in arrival order
func DiscoverDevices(ctx context.Context, options *DiscoveryOptions) []Device {
	return slices.Collect(Discover(ctx, options))
}
