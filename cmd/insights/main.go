package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-insights/internal/decoder"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	exitOK             = 0
	exitTransportError = 1
	exitParseError     = 2
	exitUsage          = 64
)

type options struct {
	server  string
	sport   string
	team1   string
	team2   string
	players []string
	venue   string
	timeout time.Duration
	verbose bool
}

type generateRequest struct {
	SelectedPlayers []string `json:"selected_players"`
	Team1           string   `json:"team1"`
	Team2           string   `json:"team2"`
	Venue           string   `json:"venue,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level := logging.LevelWarn
	if opts.verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Options{Level: level, Format: logging.FormatConsole, Service: "insights-cli", Output: stderr})
	defer func() { _ = logger.Sync() }()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	body, err := openStream(ctx, opts)
	if err != nil {
		fmt.Fprintf(stderr, "request insights: %v\n", err)
		return exitTransportError
	}

	dec := decoder.New(decoder.WithLogger(logger))
	result, err := dec.Decode(ctx, body, decoder.Hints{Team1: opts.team1, Team2: opts.team2})
	logger.Debug("stream decoded",
		"state", string(result.State),
		"repair_stage", result.Stage.String(),
		"used_final", result.UsedFinal,
		"skipped_events", result.SkippedEvents,
	)
	if err != nil {
		fmt.Fprintf(stderr, "insight stream failed: %v\n", err)
		return exitTransportError
	}

	switch result.State {
	case decoder.StateSuccess:
		out, err := sonic.ConfigStd.MarshalIndent(result.Payload, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "encode payload: %v\n", err)
			return exitTransportError
		}
		fmt.Fprintln(stdout, string(out))
		return exitOK
	case decoder.StateParseError:
		fmt.Fprintln(stderr, "the insight response could not be parsed; raw text follows")
		fmt.Fprintln(stdout, result.RawText)
		return exitParseError
	default:
		fmt.Fprintf(stderr, "insight stream ended in state %s\n", result.State)
		return exitTransportError
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("insights", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var players string
	fs.StringVar(&opts.server, "server", envOr("INSIGHTS_SERVER", "http://localhost:3000"), "API base URL")
	fs.StringVar(&opts.sport, "sport", "nba", "sport id (afl, epl, ipl, nba, nrl)")
	fs.StringVar(&opts.team1, "team1", "", "first team")
	fs.StringVar(&opts.team2, "team2", "", "second team")
	fs.StringVar(&players, "players", "", "comma separated player names")
	fs.StringVar(&opts.venue, "venue", "", "venue name")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall request timeout, 0 disables it")
	fs.BoolVar(&opts.verbose, "v", false, "log decode details to stderr")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: insights -sport nba -team1 .. -team2 .. [-players a,b] [-venue ..] [-server URL]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.server = strings.TrimRight(strings.TrimSpace(opts.server), "/")
	opts.sport = strings.ToLower(strings.TrimSpace(opts.sport))
	opts.players = splitPlayers(players)
	if opts.server == "" || opts.sport == "" {
		return options{}, fmt.Errorf("-server and -sport are required")
	}
	if opts.team1 == "" && opts.team2 == "" && len(opts.players) == 0 {
		return options{}, fmt.Errorf("select at least one team or player")
	}
	return opts, nil
}

func openStream(ctx context.Context, opts options) (io.ReadCloser, error) {
	payload, err := sonic.Marshal(generateRequest{
		SelectedPlayers: opts.players,
		Team1:           opts.team1,
		Team2:           opts.team2,
		Venue:           opts.venue,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := opts.server + "/api/" + url.PathEscape(opts.sport) + "/generate-insights?stream=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("server answered %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}
	return resp.Body, nil
}

// errorMessage pulls error.message out of an envelope, falling back to the
// raw body.
func errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func splitPlayers(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
