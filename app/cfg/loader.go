package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Source blog
	Username string `long:"username" short:"u" env:"POSTEROUS_USERNAME" description:"Blog account user name"`
	Password string `long:"password" short:"p" env:"POSTEROUS_PASSWORD" description:"Blog account password"`
	Site     string `long:"site" env:"POSTEROUS_SITE" default:"primary" description:"Site to import"`
	User     string `long:"user" env:"POSTEROUS_USER" default:"me" description:"User owning the site"`
	APIURL   string `long:"api-url" env:"POSTEROUS_API_URL" default:"http://posterous.com/api/2" description:"Blog API base URL"`

	// Import
	OutputDir  string `long:"output" short:"o" env:"OUTPUT_DIR" default:"./site" description:"Site directory items are created in"`
	PlanFile   string `long:"plan" env:"PLAN_FILE" default:"./plan.yml" description:"Import plan file (optional)"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./blog-porter.db" description:"SQLite import ledger"`
	EmbedStyle string `long:"embed-style" env:"EMBED_STYLE" choice:"shortcode" choice:"src" choice:"annotate" description:"How media embeds are rewritten (overrides the plan)"`
	DryRun     bool   `long:"dry-run" env:"DRY_RUN" description:"Log items instead of writing them"`
	Force      bool   `long:"force" env:"FORCE" description:"Re-import documents already in the ledger"`
	NoImport   bool   `long:"no-import" env:"NO_IMPORT" description:"Skip the import, only serve the status API"`

	// HTTP
	WorkerCount int     `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of parallel media downloads"`
	Timeout     int     `long:"timeout" env:"TIMEOUT" default:"30" description:"Timeout for a single download in seconds"`
	TaskTimeout int     `long:"task-timeout" env:"TASK_TIMEOUT" default:"300" description:"Timeout for one background task attempt in seconds"`
	RateLimit   float64 `long:"rate-limit" env:"RATE_LIMIT" default:"2" description:"Blog API requests per second (0 disables limiting)"`
	MaxPages    int     `long:"max-pages" env:"MAX_PAGES" default:"100" description:"Maximum number of post pages to fetch"`

	// Status server
	Serve        bool   `long:"serve" env:"SERVE" description:"Serve the status API after the import"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the status API (e.g., https://porter.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Blog Porter/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the command line and environment. It returns nil, nil when
// help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Username:     raw.Username,
		Password:     raw.Password,
		Site:         raw.Site,
		User:         raw.User,
		APIURL:       raw.APIURL,
		OutputDir:    raw.OutputDir,
		PlanFile:     raw.PlanFile,
		DBPath:       raw.DBPath,
		EmbedStyle:   raw.EmbedStyle,
		DryRun:       raw.DryRun,
		Force:        raw.Force,
		NoImport:     raw.NoImport,
		WorkerCount:  raw.WorkerCount,
		Timeout:      raw.Timeout,
		TaskTimeout:  raw.TaskTimeout,
		RateLimit:    raw.RateLimit,
		MaxPages:     raw.MaxPages,
		Serve:        raw.Serve,
		Port:         raw.Port,
		BaseUrl:      raw.BaseUrl,
		APIAccessKey: raw.APIAccessKey,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	positive := map[string]int{
		"worker count": c.WorkerCount,
		"timeout":      c.Timeout,
		"task timeout": c.TaskTimeout,
		"max pages":    c.MaxPages,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}
	if c.NoImport && !c.Serve {
		return fmt.Errorf("--no-import requires --serve")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
