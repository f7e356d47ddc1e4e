// Package lsp answers workspace symbol queries from the language servers
// installed on the machine, speaking JSON-RPC through powernap's transport.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	powernap "github.com/charmbracelet/x/powernap/pkg/lsp"
	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/charmbracelet/x/powernap/pkg/transport"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/projsym/internal/navto"
)

// methodWorkspaceSymbol has no constant in powernap.
const methodWorkspaceSymbol = "workspace/symbol"

// processWait bounds how long a closed server may take to exit.
const processWait = 5 * time.Second

// serverConfig describes how to launch and initialize one server.
type serverConfig struct {
	Command     string
	Args        []string
	Environment map[string]string
	Root        string
}

// Client is one running language server: a JSON-RPC connection plus the
// documents opened on it.
type Client struct {
	conn     *transport.Connection
	stream   io.ReadWriteCloser
	serverID string
	settings map[string]any
	cancel   context.CancelFunc

	mu       sync.Mutex
	versions map[string]int // uri -> document version
}

// newClient wraps an established stream to a server. The stream is closed
// by Client.close.
func newClient(serverID string, stream io.ReadWriteCloser, settings map[string]any) (*Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := transport.NewConnection(ctx, stream, slog.Default())
	if err != nil {
		cancel()
		stream.Close()
		return nil, fmt.Errorf("lsp: connect %s: %w", serverID, err)
	}

	c := &Client{
		conn:     conn,
		stream:   stream,
		serverID: serverID,
		settings: settings,
		cancel:   cancel,
		versions: make(map[string]int),
	}

	// Stub handlers so the server doesn't error on common requests.
	for _, method := range []string{"window/workDoneProgress/create", "client/registerCapability", "window/showMessageRequest"} {
		conn.RegisterHandler(method, func(context.Context, string, json.RawMessage) (any, error) {
			return nil, nil
		})
	}
	conn.RegisterHandler(powernap.MethodWorkspaceConfiguration, c.handleConfiguration)
	for _, method := range []string{"$/progress", "window/logMessage", "window/showMessage", "textDocument/publishDiagnostics"} {
		conn.RegisterNotificationHandler(method, func(context.Context, string, json.RawMessage) {})
	}

	return c, nil
}

// handleConfiguration answers every requested section with the server's
// configured settings.
func (c *Client) handleConfiguration(_ context.Context, _ string, params json.RawMessage) (any, error) {
	var req struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	out := make([]any, len(req.Items))
	for i := range out {
		out[i] = c.settings
	}
	return out, nil
}

// initialize performs the initialize/initialized handshake for root.
func (c *Client) initialize(ctx context.Context, root string, initOptions map[string]any) error {
	rootURI := protocol.URIFromPath(root)
	params := map[string]any{
		"processId": os.Getpid(),
		"clientInfo": map[string]any{
			"name": "projsym",
		},
		"rootUri": rootURI,
		"workspaceFolders": []protocol.WorkspaceFolder{
			{URI: string(rootURI), Name: filepath.Base(root)},
		},
		"capabilities": map[string]any{
			"workspace": map[string]any{
				"configuration":    true,
				"workspaceFolders": true,
				"symbol": map[string]any{
					"symbolKind": map[string]any{"valueSet": symbolKindRange()},
					"tagSupport": map[string]any{"valueSet": []int{symbolDeprecated}},
				},
			},
			"textDocument": map[string]any{
				"synchronization": map[string]any{"didSave": false},
			},
		},
		"initializationOptions": initOptions,
	}

	var result json.RawMessage
	if err := c.conn.Call(ctx, powernap.MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("lsp: initialize %s: %w", c.serverID, err)
	}
	if err := c.conn.Notify(ctx, powernap.MethodInitialized, struct{}{}); err != nil {
		return fmt.Errorf("lsp: initialized %s: %w", c.serverID, err)
	}
	if c.settings != nil {
		if err := c.conn.Notify(ctx, powernap.MethodWorkspaceDidChangeConfiguration, map[string]any{"settings": c.settings}); err != nil {
			return fmt.Errorf("lsp: configuration %s: %w", c.serverID, err)
		}
	}
	return nil
}

func symbolKindRange() []int {
	kinds := make([]int, 0, 26)
	for k := 1; k <= 26; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Open sends textDocument/didOpen for absPath, or didChange when the
// document is already open, so the server indexes its project.
func (c *Client) Open(ctx context.Context, absPath string) error {
	uri := protocol.URIFromPath(absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("lsp: read %s: %w", absPath, err)
	}

	c.mu.Lock()
	v, alreadyOpen := c.versions[string(uri)]
	if alreadyOpen {
		v++
	}
	c.versions[string(uri)] = v
	c.mu.Unlock()

	if alreadyOpen {
		return c.conn.Notify(ctx, powernap.MethodTextDocumentDidChange, protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				Version:                int32(v), //nolint:gosec
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{{
				Value: protocol.TextDocumentContentChangeWholeDocument{Text: string(data)},
			}},
		})
	}
	return c.conn.Notify(ctx, powernap.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: powernap.DetectLanguage(absPath),
			Version:    0,
			Text:       string(data),
		},
	})
}

// Navto runs workspace/symbol and nests the answer by container name.
func (c *Client) Navto(ctx context.Context, req navto.Request) (*navto.Response, error) {
	params := map[string]any{"query": req.SearchValue}

	var raw json.RawMessage
	if err := c.conn.Call(ctx, methodWorkspaceSymbol, params, &raw); err != nil {
		return nil, fmt.Errorf("lsp: workspace/symbol %s: %w", c.serverID, err)
	}

	items, err := decodeSymbols(raw)
	if err != nil {
		return nil, fmt.Errorf("lsp: decode %s: %w", c.serverID, err)
	}
	if req.CurrentFileOnly {
		items = onlyFile(items, req.File)
	}
	if req.MaxResults > 0 && len(items) > req.MaxResults {
		items = items[:req.MaxResults]
	}

	log.Debug().Str("server", c.serverID).Str("query", req.SearchValue).Int("count", len(items)).Msg("lsp: workspace/symbol")

	body := nest(items)
	return &navto.Response{Body: &body}, nil
}

// close shuts the server down gracefully and releases the stream.
func (c *Client) close(ctx context.Context) error {
	defer c.cancel()

	err := c.conn.Call(ctx, powernap.MethodShutdown, nil, nil)
	if err == nil {
		err = c.conn.Notify(ctx, powernap.MethodExit, nil)
	}
	c.conn.Close()
	if cerr := c.stream.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("lsp: shutdown %s: %w", c.serverID, err)
	}
	return nil
}

func onlyFile(items []navto.Item, file string) []navto.Item {
	out := items[:0:0]
	for _, it := range items {
		if it.File == file {
			out = append(out, it)
		}
	}
	return out
}

// startServer launches cfg.Command and returns its stdio as one stream.
// Server stderr is forwarded to the debug log.
func startServer(serverID string, cfg serverConfig) (io.ReadWriteCloser, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...) //nolint:gosec
	cmd.Dir = cfg.Root
	if cfg.Environment != nil {
		cmd.Env = os.Environ()
		for k, v := range cfg.Environment {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin %s: %w", serverID, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout %s: %w", serverID, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stderr %s: %w", serverID, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", serverID, err)
	}

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			log.Debug().Str("server", serverID).Str("stderr", sc.Text()).Msg("lsp: server output")
		}
	}()

	return transport.NewStreamTransport(stdout, stdin, &process{cmd: cmd, stdin: stdin}), nil
}

// process closes a server's stdin and reaps it, killing it if it lingers.
type process struct {
	cmd   *exec.Cmd
	stdin io.Closer
	once  sync.Once
	err   error
}

func (p *process) Close() error {
	p.once.Do(func() {
		p.stdin.Close()

		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()
		select {
		case err := <-done:
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				p.err = err
			}
		case <-time.After(processWait):
			p.err = p.cmd.Process.Kill()
			<-done
		}
	})
	return p.err
}
