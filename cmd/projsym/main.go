package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/projsym/internal/config"
	"github.com/xonecas/projsym/internal/editor"
	"github.com/xonecas/projsym/internal/listview"
	"github.com/xonecas/projsym/internal/lsp"
	"github.com/xonecas/projsym/internal/navto"
	"github.com/xonecas/projsym/internal/progress"
	"github.com/xonecas/projsym/internal/search"
	"github.com/xonecas/projsym/internal/treesitter"
	"github.com/xonecas/projsym/internal/tui"
)

// Version is set at build time.
var Version = "dev"

// listBuffer bounds queued list updates between the search side and the UI.
const listBuffer = 1024

const shutdownTimeout = 3 * time.Second

type flags struct {
	configPath string
	logLevel   string
	root       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "projsym [file]",
		Short: "Search project symbols as you type",
		Long: "projsym searches the symbols of the project containing [file] and prints\n" +
			"the picked location as file:line:col.",
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			return run(cmd.Context(), f, file)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to config file (default ~/.config/projsym/config.toml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	cmd.Flags().StringVarP(&f.root, "root", "r", "", "project root to index (default: current directory)")
	return cmd
}

func run(ctx context.Context, f flags, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	for _, key := range cfg.Unknown {
		log.Warn().Str("key", key).Msg("config: unknown key")
	}

	root, err := projectRoot(f.root, file)
	if err != nil {
		return err
	}

	idx, err := treesitter.NewIndex(root)
	if err != nil {
		return err
	}
	if err := idx.Build(ctx); err != nil {
		return err
	}
	log.Info().Str("root", root).Int("files", idx.Len()).Msg("index built")

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watcher, err := treesitter.NewWatcher(watchCtx, idx, treesitter.DefaultSettle)
	if err != nil {
		// Search still works, the index just goes stale.
		log.Warn().Err(err).Msg("index watcher disabled")
	}

	active, err := activeFile(idx, file)
	if err != nil {
		return err
	}

	mgr := lsp.NewManager(lsp.Options{
		Disabled:    cfg.LSP.Disabled,
		InitTimeout: cfg.LSP.InitTimeout(),
	})
	resolvers := []navto.Resolver{mgr}
	if cfg.LSP.Fallback {
		resolvers = append(resolvers, idx)
	}

	ed := editor.NewActive(active)
	updates := listview.NewChan(listBuffer)
	bus := progress.NewBus()
	coord := search.New(navto.Chain(resolvers...), ed, bus, updates, search.Options{
		Delay:      cfg.Search.Debounce(),
		Timeout:    cfg.Search.Timeout(),
		MaxResults: cfg.Search.MaxResults,
	})
	reporter := progress.NewReporter(bus, updates, coord.EmptyMessage)

	model := tui.New(tui.Options{
		Coordinator: coord,
		Reporter:    reporter,
		Updates:     updates,
		Editor:      ed,
		Theme:       cfg.UI.SyntaxTheme,
		Root:        root,
	})
	final, runErr := tea.NewProgram(model, tea.WithContext(ctx)).Run()

	coord.Close()
	bus.Close()
	updates.Close()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			log.Debug().Err(err).Msg("index watcher close")
		}
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	mgr.StopAll(stopCtx)
	cancel()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run: %w", runErr)
	}
	if m, ok := final.(tui.Model); ok {
		if tag, ok := m.Picked(); ok {
			fmt.Println(tag.Location())
		}
	}
	return nil
}

// setupLogging points the global zerolog logger at the log file.
func setupLogging(cfg config.LogConfig) (func(), error) {
	level, err := cfg.ZerologLevel()
	if err != nil {
		return nil, err
	}
	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(fh).With().Timestamp().Logger()
	return func() { fh.Close() }, nil
}

// projectRoot picks the index root: the flag, then the file's directory,
// then the working directory.
func projectRoot(flagRoot, file string) (string, error) {
	root := flagRoot
	switch {
	case root != "":
	case file != "":
		root = filepath.Dir(file)
	default:
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("root %s: not a directory", abs)
	}
	return abs, nil
}

// activeFile resolves the document searches are scoped to. Without an
// explicit file the first indexed file is used.
func activeFile(idx *treesitter.Index, file string) (string, error) {
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", err
		}
		return abs, nil
	}
	files := idx.Files()
	if len(files) == 0 {
		return "", fmt.Errorf("no source files under %s", idx.Root())
	}
	return filepath.Join(idx.Root(), filepath.FromSlash(files[0])), nil
}
