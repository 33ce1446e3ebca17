// Command indexcli is a thin CLI front end over the indexing engine,
// modeled on the teacher's cmd/lci: a urfave/cli/v2 app whose commands
// do nothing but load configuration, build an engine, and call its
// public API.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sourcegrid/codeindex/internal/config"
	"github.com/sourcegrid/codeindex/internal/debug"
	"github.com/sourcegrid/codeindex/internal/indexengine"
	"github.com/sourcegrid/codeindex/internal/langs"
	"github.com/sourcegrid/codeindex/internal/registry"
	"github.com/sourcegrid/codeindex/internal/symbolindex"
	"github.com/sourcegrid/codeindex/internal/watch"
)

func loadConfigWithOverrides(c *cli.Context) (*config.IndexConfig, error) {
	root := c.String("root")
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	configPath := c.String("config")
	var cfg *config.IndexConfig
	if configPath != "" {
		cfg, err = config.LoadTOML(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg = config.New(absRoot)
	}
	cfg.WorkspacePath = absRoot

	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.IncludeExtensions = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, excludes...)
	}
	return cfg, nil
}

func buildEngine(cfg *config.IndexConfig) (*indexengine.Engine, error) {
	registry.ResetInstance()
	reg := registry.Instance()
	factory := registry.NewFactory(reg)
	if err := langs.RegisterAll(reg, factory); err != nil {
		return nil, fmt.Errorf("failed to register parsers: %w", err)
	}
	return indexengine.New(cfg, factory)
}

func main() {
	app := &cli.App{
		Name:  "indexcli",
		Usage: "Index and search a codebase's files and symbols",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file path",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (default: current directory)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include only files with these extensions, e.g. .go (overrides defaults)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (extends defaults)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index the project and report basic stats",
				Action: indexCommand,
			},
			{
				Name:      "search",
				Usage:     "Search symbols by name",
				ArgsUsage: "<pattern>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of results (0 = default of 100)",
					},
					&cli.BoolFlag{
						Name:  "fuzzy",
						Usage: "Use fuzzy subsequence matching instead of substring containment",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output results as JSON",
					},
				},
				Action: searchCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show file and symbol index statistics",
				Action: statsCommand,
			},
			{
				Name:  "watch",
				Usage: "Index the project, then watch for changes until interrupted",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "debounce-ms",
						Usage: "Override the configured debounce window",
					},
				},
				Action: watchCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Dispose()

	start := time.Now()
	if err := eng.IndexProject(""); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	debug.LogIndex("indexed %s in %v\n", cfg.WorkspacePath, time.Since(start))

	stats, err := eng.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	fmt.Printf("Indexed %d files (%d parsed), %d symbols, %d dependencies in %v\n",
		stats.TotalFiles, stats.IndexedFiles, stats.TotalSymbols, stats.TotalDependencies, time.Since(start))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: indexcli search <pattern>")
	}
	pattern := c.Args().First()

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Dispose()

	if err := eng.IndexProject(""); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	opts := symbolindex.DefaultSearchOptions()
	opts.Fuzzy = c.Bool("fuzzy")
	if max := c.Int("max-results"); max > 0 {
		opts.MaxResults = max
	}

	results, err := eng.SearchSymbols(pattern, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	for _, r := range results {
		fmt.Printf("%.2f\t%s\t%s:%d\n",
			r.Score, r.Entry.Symbol.Name, r.Entry.FileInfo.FilePath, r.Entry.Symbol.Location.Range.Start.Line)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Dispose()

	if err := eng.IndexProject(""); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	stats, err := eng.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Files:       %d (%d indexed)\n", stats.TotalFiles, stats.IndexedFiles)
	fmt.Printf("Symbols:     %d\n", stats.TotalSymbols)
	fmt.Printf("Deps:        %d\n", stats.TotalDependencies)
	fmt.Printf("Index size:  %d bytes (estimated)\n", stats.IndexSize)
	for kind, count := range stats.SymbolsByType {
		fmt.Printf("  %-12s %d\n", kind, count)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Dispose()

	if err := eng.IndexProject(""); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	debounceMs := cfg.WatchDebounceMs
	if override := c.Int("debounce-ms"); override > 0 {
		debounceMs = override
	}

	w, err := watch.New(eng, cfg.ExcludePatterns, debounceMs, cfg.MaxConcurrency)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.OnFileChanged(func(ev watch.FileChangedEvent) {
		debug.LogWatch("%s %s\n", ev.Kind, ev.Path)
	})
	w.OnError(func(err error) {
		fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
	})

	if err := w.Start(cfg.WorkspacePath); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Printf("Watching %s (debounce %dms). Press Ctrl+C to stop.\n", cfg.WorkspacePath, debounceMs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("shutting down")
	return nil
}
