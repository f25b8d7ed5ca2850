package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"

	onvif "github.com/SridarDhandapani/onvif-media"
)

const usage = `usage: onvifctl [flags] <command>

commands:
  discover            list cameras on the local network
  profiles <url>      list media profiles of a device service
  stream <url>        print the main and sub stream URIs

flags:
`

func main() {
	var username, password, quality string
	var timeout time.Duration
	var insecure, verbose bool

	flag.StringVar(&username, "user", "", "ONVIF username")
	flag.StringVar(&password, "pass", "", "ONVIF password")
	flag.StringVar(&quality, "quality", "", "main or sub, empty prints both")
	flag.DurationVar(&timeout, "timeout", onvif.DefaultTimeout, "Discovery timeout")
	flag.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	flag.BoolVar(&verbose, "v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if verbose {
		onvif.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := onvif.NewClient()
	client.InsecureTLS = insecure
	creds := onvif.Credentials{Username: username, Password: password}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch {
	case args[0] == "discover":
		discover(ctx, timeout)
	case args[0] == "profiles" && len(args) == 2:
		err = profiles(ctx, client, args[1], creds)
	case args[0] == "stream" && len(args) == 2:
		err = stream(ctx, client, args[1], creds, onvif.StreamQuality(quality))
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", onvif.ErrorKind(err), err)
		os.Exit(1)
	}
}

func discover(ctx context.Context, timeout time.Duration) {
	var n int
	for dev := range onvif.Discover(ctx, &onvif.DiscoveryOptions{Timeout: timeout}) {
		n++
		fmt.Printf("%-3d %-32s %-16s %s\n", n, dev.DisplayName(), dev.IPAddress, dev.ServiceURL)
	}

	if n == 0 {
		fmt.Println("No ONVIF cameras found on the network.")
	}
}

func profiles(ctx context.Context, client *onvif.Client, deviceURL string, creds onvif.Credentials) error {
	list, err := client.GetProfiles(ctx, deviceURL, creds)
	if err != nil {
		return err
	}

	for _, p := range list {
		kind := "main"
		if onvif.IsSubStream(p) {
			kind = "sub"
		}
		fmt.Printf("%-20s %-20s %-5s %4dx%-4d %s\n", p.Token, p.Name, p.Video.Encoding, p.Video.Width, p.Video.Height, kind)
	}
	return nil
}

func stream(ctx context.Context, client *onvif.Client, deviceURL string, creds onvif.Credentials, quality onvif.StreamQuality) error {
	var infos []onvif.StreamInfo

	switch quality {
	case onvif.MainStream, onvif.SubStream:
		info, err := client.OpenStream(ctx, deviceURL, creds, quality)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	case "":
		set, err := client.GetStreams(ctx, deviceURL, creds)
		if err != nil {
			return err
		}
		infos = append(infos, set.Main, set.Sub)
	default:
		return fmt.Errorf("unknown quality %q", quality)
	}

	for _, info := range infos {
		fmt.Printf("%-4s %s (%s)\n", strings.ToUpper(string(info.Quality)), info.URI, info.Profile.Token)
	}
	return nil
}
