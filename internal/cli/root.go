// Package cli implements the wbctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wbgo/pkg/cache"
	"wbgo/pkg/config"
	"wbgo/pkg/db"
	"wbgo/pkg/logging"
	"wbgo/pkg/mwapi"
	"wbgo/pkg/tracker"
	"wbgo/pkg/wikibase"
)

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config  *config.Config
	DB      *db.DB
	Cache   *cache.SQLiteCache
	Tracker *tracker.Tracker
	Client  *mwapi.Client

	cleanupLogs func()
}

// Close releases resources held by cmdContext.
func (c *cmdContext) Close() {
	if showStats {
		printStats(c.Tracker)
	}
	if c.DB != nil {
		c.DB.Close()
	}
	if c.cleanupLogs != nil {
		c.cleanupLogs()
	}
}

var (
	configPath string
	siteHost   string
	traceWire  bool
	showStats  bool
)

// initContext loads .env, config and logging (no database, no client).
func initContext() *cmdContext {
	// .env keeps credentials out of the config file
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		exitError("%v", err)
	}

	cleanup, err := logging.Init(&cfg.Log)
	if err != nil {
		exitError("failed to initialize logging: %v", err)
	}
	logging.EnableTrace = traceWire

	return &cmdContext{Config: cfg, Tracker: tracker.New(), cleanupLogs: cleanup}
}

// initStoreContext additionally opens the local database and cache.
func initStoreContext() *cmdContext {
	c := initContext()

	d, err := db.Init(c.Config.DB.Path)
	if err != nil {
		c.Close()
		exitError("failed to open database: %v", err)
	}
	c.DB = d
	c.Cache = cache.NewSQLiteCache(d)

	if ttl := time.Duration(c.Config.SPARQL.CacheTTL); ttl > 0 {
		if err := d.PruneCache(ttl); err != nil {
			slog.Warn("Failed to prune cache", "error", err)
		}
	}

	return c
}

// initAPIContext additionally builds the action API client. OAuth
// credentials from the config apply automatically; the bot-password login
// round-trip is paid only by edit commands (initEditContext).
func initAPIContext() *cmdContext {
	c := initStoreContext()
	c.Client = mwapi.FromConfig(c.Config, siteHost, c.Tracker, logging.APILogger)
	return c
}

// initEditContext performs the bot-password login when one is configured.
func initEditContext(ctx context.Context) *cmdContext {
	c := initAPIContext()

	site := c.Config.Site(c.Client.Site())
	if site.OAuth.ConsumerKey == "" && site.User != "" {
		if err := c.Client.Login(ctx, site.User, site.Password); err != nil {
			c.Close()
			exitError("login failed: %v", err)
		}
	}

	return c
}

var rootCmd = &cobra.Command{
	Use:   "wbctl",
	Short: "Wikibase command-line client",
	Long: `wbctl reads and edits entities on Wikibase instances such as Wikidata.
Edits send only what changed locally, run SPARQL queries against the query
service, and keep a local log of every edit made.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, so signals cancel
// in-flight API retries.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/wbgo.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&siteHost, "site", "", "Wikibase host (default from config)")
	rootCmd.PersistentFlags().BoolVar(&traceWire, "trace", false, "dump API request/response bodies to the log")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print usage statistics after the command")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(descriptionCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(sitelinkCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sparqlCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// saveEntity pushes unsaved changes and records the edit locally.
func saveEntity(ctx context.Context, c *cmdContext, ent *wikibase.Entity, summary string) {
	if !ent.Dirty() {
		fmt.Println("Nothing to do")
		return
	}

	if err := ent.Save(ctx, summary); err != nil {
		exitError("save failed: %v", err)
	}
	c.Tracker.TrackEdit(ent.Site())

	if err := c.DB.RecordEdit(ent.Site(), ent.ID(), summary); err != nil {
		slog.Warn("Failed to record edit", "entity", ent.ID(), "error", err)
	}

	color.New(color.FgGreen).Printf("Saved %s\n", ent.ID())
}

// printStats prints the tracker counters accumulated during the command.
func printStats(t *tracker.Tracker) {
	snap := t.Snapshot()
	if len(snap) == 0 {
		return
	}

	providers := make([]string, 0, len(snap))
	for p := range snap {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	fmt.Println()
	color.New(color.FgCyan).Println("Usage:")
	for _, p := range providers {
		s := snap[p]
		fmt.Printf("  %-24s api %d ok / %d failed, cache %d hit / %d miss, %d retries, %d edits\n",
			p, s.APISuccess, s.APIFailures, s.CacheHits, s.CacheMisses, s.Retries, s.Edits)
	}
}
