// courtside - online match list tracker and statistics service
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/gzhttp"
	flag "github.com/spf13/pflag"

	"courtside/internal/api"
	"courtside/internal/broadcast"
	"courtside/internal/collector"
	"courtside/internal/config"
	"courtside/internal/domain"
	"courtside/internal/logger"
	"courtside/internal/stats"
	"courtside/internal/storage"
)

var version = "dev"

const defaultConfigPath = "/etc/courtside/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "decode":
		cmdDecode(os.Args[2:])
	case "scores":
		cmdScores(os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "top":
		cmdTop(os.Args[2:])
	case "version":
		fmt.Printf("courtside %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: courtside <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                        Start the tracker server")
	fmt.Println("  decode [file]                Decode a raw feed payload (default: stdin)")
	fmt.Println("  scores [--surface S] [--started]")
	fmt.Println("                               Show the current match list")
	fmt.Println("  stats [--days N]             Show daily finished-match counters")
	fmt.Println("  top [--limit N]              Show most frequently seen players")
	fmt.Println("  version                      Show version")
	fmt.Println("  help                         Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/courtside/config.yml)")
	fmt.Println("  --url <url>        Base URL of the courtside server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  courtside serve --config /etc/courtside/config.yml")
	fmt.Println("  courtside decode payload.txt")
	fmt.Println("  courtside scores --surface clay --started")
	fmt.Println("  courtside stats --days 30")
}

// cmdServe starts the tracker server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			fmt.Fprintf(os.Stderr, "No config file found at %s. Use --config to specify a config file.\n", defaultConfigPath)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.LogLevel)
	log.Info().Str("version", version).Str("feed", cfg.Feed.URL).Msg("courtside starting")

	tz, err := time.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Stats.Timezone).Msg("loading stats timezone")
	}

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing database")
	}
	defer store.Close()
	log.Info().Str("path", cfg.Database.Path).Msg("database initialized")

	// Optional NATS fan-out: embedded broker, external broker, or off
	var natsPub *broadcast.NatsPublisher
	if cfg.Nats.Embedded {
		ns, err := broadcast.StartEmbeddedServer(cfg.Nats.Port, log)
		if err != nil {
			log.Fatal().Err(err).Msg("starting embedded nats server")
		}
		defer ns.Shutdown()
		natsPub, err = broadcast.NewNatsPublisher(fmt.Sprintf("nats://127.0.0.1:%d", cfg.Nats.Port), cfg.Nats.Subject, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to embedded nats server")
		}
	} else if cfg.Nats.URL != "" {
		natsPub, err = broadcast.NewNatsPublisher(cfg.Nats.URL, cfg.Nats.Subject, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to nats")
		}
	}
	if natsPub != nil {
		defer natsPub.Close()
		log.Info().Str("subject", cfg.Nats.Subject).Msg("nats publishing enabled")
	}

	hub := broadcast.NewHub(cfg.Broadcast.QueueSize, log)
	go hub.Run()

	publisher := broadcast.NewPublisher(hub, natsPub, log)
	agg := stats.New(store, tz, log)
	registry := collector.NewRegistry(cfg.Stats.FinishThreshold, cfg.Stats.Retention.Duration, log)
	fetcher := collector.NewFeedClient(cfg.Feed.URL, cfg.Feed.Timeout.Duration, cfg.Feed.UserAgent)

	manager := collector.NewManager(cfg.Feed.PollInterval.Duration, fetcher, registry, agg, publisher, log)
	manager.Start()

	router := api.NewRouter(publisher, agg, hub, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("http server error")
	}

	// Sequential shutdown: stop accepting requests, stop the poll loop,
	// then stop the fan-out.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}

	manager.Stop()
	hub.Stop()
	log.Info().Msg("shutdown complete")
}

// cmdDecode decodes one raw payload from a file or stdin and prints
// the result as JSON. Useful for inspecting what the feed is serving.
func cmdDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	fs.Parse(args)

	var raw []byte
	var err error
	if fs.NArg() > 0 {
		raw, err = os.ReadFile(fs.Arg(0))
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading payload: %v\n", err)
		os.Exit(1)
	}

	matches, skipped := collector.Decode(string(raw))
	out := struct {
		Matches []domain.DecodedMatch `json:"matches"`
		Total   int                   `json:"total"`
		Skipped int                   `json:"skipped"`
	}{Matches: matches, Total: len(matches), Skipped: skipped}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d malformed entries skipped\n", skipped)
	}
}

// CLI helper variable
var baseURL = "http://localhost:8080"

// resolveBaseURL derives the server URL from config, letting --url win
func resolveBaseURL(configPath, url string) {
	if url != "" {
		baseURL = url
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return
	}
	baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
}

func getJSON(path string, target interface{}) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func cmdScores(args []string) {
	fs := flag.NewFlagSet("scores", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the courtside server")
	surface := fs.String("surface", "", "filter by surface name")
	started := fs.Bool("started", false, "show only started matches")
	fs.Parse(args)

	resolveBaseURL(*configPath, *url)

	query := "/api/scores?"
	if *surface != "" {
		query += "surface=" + *surface + "&"
	}
	if *started {
		query += "started_only=true"
	}

	var resp struct {
		Matches   []domain.DecodedMatch `json:"matches"`
		Total     int                   `json:"total"`
		Stale     bool                  `json:"stale"`
		LastError string                `json:"last_error"`
	}
	if err := getJSON(strings.TrimRight(query, "?&"), &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Stale {
		fmt.Fprintf(os.Stderr, "Warning: list is stale (%s)\n", resp.LastError)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tSCORE\tSURFACE\tMOD\tFORMAT\tELO\tSTATE")
	fmt.Fprintln(w, "-----\t-----\t-------\t---\t------\t---\t-----")

	for _, m := range resp.Matches {
		state := "waiting"
		if m.IsStarted {
			state = "playing"
		}
		score := m.Score
		if score == "" {
			score = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			m.Name, score, m.SurfaceDisplay, m.ModType, m.FormatClass, m.Elo, state)
	}
	w.Flush()

	fmt.Printf("\n%d matches\n", resp.Total)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the courtside server")
	days := fs.Int("days", 7, "number of days to show")
	fs.Parse(args)

	resolveBaseURL(*configPath, *url)

	var resp struct {
		Degraded bool                   `json:"degraded"`
		Data     []domain.DailyCounters `json:"data"`
	}
	if err := getJSON(fmt.Sprintf("/api/scores/stats/history?days=%d", *days), &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Degraded {
		fmt.Fprintln(os.Stderr, "Warning: counters degraded, recent finishes may be missing")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tXKT\tWTSL\tVANILLA\tTOTAL")
	fmt.Fprintln(w, "---\t---\t----\t-------\t-----")

	for _, d := range resp.Data {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			d.Date, d.XKT.Total, d.WTSL.Total, d.Vanilla.Total, d.Total())
	}
	w.Flush()
}

func cmdTop(args []string) {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the courtside server")
	limit := fs.Int("limit", 10, "number of players to show")
	fs.Parse(args)

	resolveBaseURL(*configPath, *url)

	var resp struct {
		Players []domain.TopPlayer `json:"players"`
	}
	if err := getJSON(fmt.Sprintf("/api/scores/players/top?limit=%d", *limit), &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYER\tMATCHES\tLAST SEEN")
	fmt.Fprintln(w, "------\t-------\t---------")

	for _, p := range resp.Players {
		fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, p.Appearances, p.LastSeen)
	}
	w.Flush()
}
