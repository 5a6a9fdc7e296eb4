package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Subcommands of intentd.
const (
	CommandServe = "serve"
	CommandSeed  = "seed"
	CommandCrawl = "crawl"
)

var ErrUsage = errors.New("usage: intentd <serve|seed|crawl> [flags]")

// ServeArgs override the environment configuration for one server run.
// Empty fields keep the configured value.
type ServeArgs struct {
	Addr     string
	DBPath   string
	LogLevel string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// SeedArgs name a seed file to load into the database.
type SeedArgs struct {
	File   string
	DBPath string

	RawArgs []string
}

// CrawlArgs index an operator site for context lookup.
type CrawlArgs struct {
	SiteID   string
	Root     string
	MaxDepth int
	MaxPages int
	DBPath   string

	RawArgs []string
}

// ReplayArgs drive one recorded page view against a running gateway.
type ReplayArgs struct {
	File      string
	Gateway   string
	SiteID    string
	AccessKey string
	// SessionID is generated when empty.
	SessionID string

	WS bool
	// Page is an optional HTML file the adaptive payload is injected into.
	Page      string
	URL       string
	Referrer  string
	UserAgent string
	End       bool

	RawArgs []string
}

// SplitCommand returns the subcommand and its arguments.
func SplitCommand(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, ErrUsage
	}
	switch cmd := strings.ToLower(args[0]); cmd {
	case CommandServe, CommandSeed, CommandCrawl:
		return cmd, args[1:], nil
	default:
		return "", nil, fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)
	return fs
}

// ParseServeArgs parses the serve subcommand. It does not read os.Args.
func ParseServeArgs(args []string) (*ServeArgs, error) {
	fs := newFlagSet("intentd serve")
	var (
		addr     = fs.String("addr", "", "Listen address (overrides INTENT_LISTEN_ADDR)")
		db       = fs.String("db", "", "SQLite database path (overrides INTENT_DB_PATH)")
		logLevel = fs.String("log-level", "", "debug|info|warn|error (overrides INTENT_LOG_LEVEL)")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return &ServeArgs{
		Addr:     strings.TrimSpace(*addr),
		DBPath:   strings.TrimSpace(*db),
		LogLevel: strings.TrimSpace(*logLevel),
		RawArgs:  args,
	}, nil
}

// ParseSeedArgs parses the seed subcommand.
func ParseSeedArgs(args []string) (*SeedArgs, error) {
	fs := newFlagSet("intentd seed")
	var (
		file = fs.String("file", "", "JSON seed file with sites, templates, prompts and content (required)")
		db   = fs.String("db", "", "SQLite database path (overrides INTENT_DB_PATH)")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(*file) == "" {
		return nil, fmt.Errorf("missing required -file argument")
	}
	return &SeedArgs{
		File:    strings.TrimSpace(*file),
		DBPath:  strings.TrimSpace(*db),
		RawArgs: args,
	}, nil
}

// ParseCrawlArgs parses the crawl subcommand.
func ParseCrawlArgs(args []string) (*CrawlArgs, error) {
	fs := newFlagSet("intentd crawl")
	var (
		site     = fs.String("site", "", "Site id the content belongs to (required)")
		root     = fs.String("root", "", "Root URL to crawl (required)")
		maxDepth = fs.Int("depth", 2, "Maximum link depth from the root")
		maxPages = fs.Int("max-pages", 200, "Maximum number of pages to index")
		db       = fs.String("db", "", "SQLite database path (overrides INTENT_DB_PATH)")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(*site) == "" || strings.TrimSpace(*root) == "" {
		return nil, fmt.Errorf("missing required -site and -root arguments")
	}
	if *maxDepth < 0 || *maxPages <= 0 {
		return nil, fmt.Errorf("-depth must be >= 0 and -max-pages > 0")
	}
	return &CrawlArgs{
		SiteID:   strings.TrimSpace(*site),
		Root:     strings.TrimSpace(*root),
		MaxDepth: *maxDepth,
		MaxPages: *maxPages,
		DBPath:   strings.TrimSpace(*db),
		RawArgs:  args,
	}, nil
}

// ParseReplayArgs parses intentreplay's flags.
func ParseReplayArgs(args []string) (*ReplayArgs, error) {
	fs := newFlagSet("intentreplay")
	var (
		file      = fs.String("file", "", "JSONL recording to replay (required)")
		gateway   = fs.String("gateway", "http://localhost:8080", "Gateway base URL")
		site      = fs.String("site", "", "Site id (required)")
		key       = fs.String("key", "", "Site access key (required)")
		session   = fs.String("session", "", "Session id (default: random)")
		ws        = fs.Bool("ws", false, "Stream batches over the WebSocket endpoint")
		page      = fs.String("page", "", "HTML file to inject the adaptive payload into")
		pageURL   = fs.String("url", "", "URL of the replayed page (required)")
		referrer  = fs.String("referrer", "", "Referrer of the replayed page")
		userAgent = fs.String("user-agent", "Mozilla/5.0 (X11; Linux x86_64) intentreplay/1.0", "User agent reported with each batch")
		end       = fs.Bool("end", true, "Finish with a session_end batch")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var missing []string
	for _, f := range []struct{ name, val string }{
		{"file", *file}, {"site", *site}, {"key", *key}, {"url", *pageURL}, {"gateway", *gateway},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, "-"+f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}

	return &ReplayArgs{
		File:      *file,
		Gateway:   strings.TrimRight(*gateway, "/"),
		SiteID:    *site,
		AccessKey: *key,
		SessionID: *session,
		WS:        *ws,
		Page:      *page,
		URL:       *pageURL,
		Referrer:  *referrer,
		UserAgent: *userAgent,
		End:       *end,
		RawArgs:   args,
	}, nil
}
