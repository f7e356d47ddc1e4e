package lsp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	powernapconfig "github.com/charmbracelet/x/powernap/pkg/config"
	powernap "github.com/charmbracelet/x/powernap/pkg/lsp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/xonecas/projsym/internal/navto"
)

// DefaultInitTimeout bounds server initialization.
const DefaultInitTimeout = 15 * time.Second

// skipAutoStart lists generic commands that should not be auto-started.
// These interpreters/runners may trigger package downloads or run wrong binaries.
var skipAutoStart = map[string]bool{
	"npx":     true,
	"node":    true,
	"python":  true,
	"python3": true,
	"java":    true,
	"ruby":    true,
	"perl":    true,
	"dotnet":  true,
	"bun":     true,
}

// Options configures a Manager.
type Options struct {
	// Disabled names servers that are never started.
	Disabled    []string
	InitTimeout time.Duration
}

// Manager manages LSP server lifecycles keyed by server name and resolves
// the session serving a file.
type Manager struct {
	cfgMgr *powernapconfig.Manager
	opts   Options
	starts singleflight.Group

	mu      sync.Mutex
	clients map[string]*Client // serverName -> client
	broken  map[string]bool    // servers that failed to start
}

// NewManager creates a manager with powernap's built-in server defaults.
func NewManager(opts Options) *Manager {
	// Silence powernap's slog output: it writes to stderr which the TUI owns.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}

	cm := powernapconfig.NewManager()
	_ = cm.LoadDefaults()
	return &Manager{
		cfgMgr:  cm,
		opts:    opts,
		clients: make(map[string]*Client),
		broken:  make(map[string]bool),
	}
}

// Session returns a running client for absPath, starting one if needed.
// navto.ErrNoSession means no installed server handles the file.
func (m *Manager) Session(ctx context.Context, absPath string) (navto.Session, error) {
	clients := m.ensureClients(ctx, absPath)
	if len(clients) == 0 {
		return nil, fmt.Errorf("lsp: %s: %w", filepath.Base(absPath), navto.ErrNoSession)
	}
	return clients[0], nil
}

// StopAll gracefully shuts down all running LSP servers.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		if err := c.close(ctx); err != nil {
			log.Error().Err(err).Str("server", c.serverID).Msg("lsp: stopAll")
		}
	}
}

// serverToStart holds info needed to start an LSP server outside the lock.
type serverToStart struct {
	name    string
	cfg     *powernapconfig.ServerConfig
	root    string
	cmdPath string
}

// ensureClients finds or starts LSP servers for the given file, ordered by
// server name so the choice is stable.
func (m *Manager) ensureClients(ctx context.Context, absPath string) []*Client {
	lang := string(powernap.DetectLanguage(absPath))
	if lang == "" {
		log.Debug().Str("file", absPath).Msg("lsp: unknown language, skipping")
		return nil
	}

	servers := m.cfgMgr.GetServers()
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	// Phase 1: under lock, collect existing clients and identify servers to start.
	m.mu.Lock()
	var result []*Client
	var pending []serverToStart

	for _, name := range names {
		cfg := servers[name]
		if !matchesFileType(cfg, lang) || slices.Contains(m.opts.Disabled, name) {
			continue
		}
		if m.broken[name] {
			continue
		}
		if c, ok := m.clients[name]; ok {
			result = append(result, c)
			continue
		}
		if skipAutoStart[cfg.Command] {
			m.broken[name] = true
			continue
		}
		cmdPath := lookPath(cfg.Command)
		if cmdPath == "" {
			m.broken[name] = true
			continue
		}
		root := findRoot(absPath, cfg.RootMarkers)
		if root == "" {
			root, _ = os.Getwd()
		}
		pending = append(pending, serverToStart{name: name, cfg: cfg, root: root, cmdPath: cmdPath})
	}
	m.mu.Unlock()

	// Phase 2: start servers without holding the lock (blocking I/O).
	// Concurrent lookups for the same server share one start.
	for _, s := range pending {
		v, err, _ := m.starts.Do(s.name, func() (any, error) {
			m.mu.Lock()
			c, ok := m.clients[s.name]
			m.mu.Unlock()
			if ok {
				return c, nil
			}
			return m.startClient(ctx, s.name, s.cfg, s.root, s.cmdPath)
		})

		m.mu.Lock()
		if err != nil {
			log.Error().Err(err).Str("server", s.name).Msg("lsp: start failed")
			m.broken[s.name] = true
		} else {
			c := v.(*Client)
			m.clients[s.name] = c
			result = append(result, c)
		}
		m.mu.Unlock()
	}

	return result
}

// startClient spawns and initializes a single LSP server.
func (m *Manager) startClient(ctx context.Context, name string, cfg *powernapconfig.ServerConfig, root, cmdPath string) (*Client, error) {
	stream, err := startServer(name, serverConfig{
		Command:     cmdPath,
		Args:        cfg.Args,
		Environment: cfg.Environment,
		Root:        root,
	})
	if err != nil {
		return nil, err
	}

	c, err := newClient(name, stream, cfg.Settings)
	if err != nil {
		return nil, err
	}

	// Servers outlive the request that started them.
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.InitTimeout)
	defer cancel()

	if err := c.initialize(initCtx, root, cfg.InitOptions); err != nil {
		_ = c.close(initCtx)
		return nil, fmt.Errorf("initialize: %w", err)
	}

	log.Info().Str("server", name).Str("root", root).Str("cmd", cmdPath).Msg("lsp: server started")
	return c, nil
}

// matchesFileType checks if a server config handles the given language ID.
func matchesFileType(cfg *powernapconfig.ServerConfig, lang string) bool {
	return slices.Contains(cfg.FileTypes, lang)
}

// findRoot walks up from the file looking for any of the root markers.
func findRoot(absPath string, markers []string) string {
	dir := filepath.Dir(absPath)
	for {
		for _, marker := range markers {
			matches, _ := filepath.Glob(filepath.Join(dir, marker))
			if len(matches) > 0 {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// lookPath finds a command binary, checking PATH first, then common
// language-specific bin directories that may not be in PATH.
func lookPath(command string) string {
	if p, err := exec.LookPath(command); err == nil {
		return p
	}

	// Extra directories where language toolchains install binaries.
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	var extras []string

	// Go: $GOBIN or $GOPATH/bin or ~/go/bin
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		extras = append(extras, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		extras = append(extras, filepath.Join(gopath, "bin"))
	}
	extras = append(extras, filepath.Join(home, "go", "bin"))

	// Rust: ~/.cargo/bin
	extras = append(extras, filepath.Join(home, ".cargo", "bin"))

	// Local bin
	extras = append(extras, filepath.Join(home, ".local", "bin"))

	for _, dir := range extras {
		p := filepath.Join(dir, command)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}
