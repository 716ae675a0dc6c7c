package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/mkravets/voicelog/internal/api"
	"github.com/mkravets/voicelog/internal/classifier"
	"github.com/mkravets/voicelog/internal/config"
	"github.com/mkravets/voicelog/internal/keywords"
	"github.com/mkravets/voicelog/internal/pipeline"
	"github.com/mkravets/voicelog/internal/query"
	"github.com/mkravets/voicelog/internal/storage"
	"github.com/mkravets/voicelog/internal/transcribe"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the voicelog server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running voicelog server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show voicelog system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "voicelog.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "voicelog version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("voicelog is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("voicelog is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the ingestion pipeline: whisper engine, keyword extractor, store.
	whisperTimeout, err := time.ParseDuration(cfg.Whisper.Timeout)
	if err != nil {
		slog.Warn("invalid whisper timeout, using default 2m", "value", cfg.Whisper.Timeout, "error", err)
		whisperTimeout = 2 * time.Minute
	}
	engine := transcribe.NewCLIEngine(cfg.Whisper.Binary, cfg.Whisper.Model, cfg.Whisper.Device, whisperTimeout)
	adapter := transcribe.NewAdapter(engine)

	var cls keywords.Classifier
	if cfg.Classifier.Enabled {
		client := classifier.New(cfg.Classifier.BaseURL)
		if client.IsRunning(ctx) {
			slog.Info("keyword classifier ready", "base_url", cfg.Classifier.BaseURL, "model", cfg.Classifier.Model)
		} else {
			slog.Warn("keyword classifier not reachable, falling back to frequency extraction", "base_url", cfg.Classifier.BaseURL)
		}
		cls = client
	}
	extractor := keywords.NewExtractor(cls, cfg.Classifier.Model)

	ingestor := pipeline.NewIngestor(adapter, extractor, store)
	queries := query.NewService(store)

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Ingestor: ingestor,
		Query:    queries,
		Store:    store,
		Token:    cfg.Server.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}
	srv := &http.Server{Handler: handler}

	// Build and start MCP server (stdio transport in a goroutine).
	if cfg.MCP.Enabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Ingestor: ingestor,
			Query:    queries,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "voicelog listening on %s\n", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("voicelog is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop voicelog (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to voicelog (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the whisper CLI is installed.
	if _, err := exec.LookPath(cfg.Whisper.Binary); err != nil {
		printStatus("Whisper", "%s not found in PATH", cfg.Whisper.Binary)
	} else {
		printStatus("Whisper", "%s (%s, %s)", cfg.Whisper.Binary, cfg.Whisper.Model, cfg.Whisper.Device)
	}

	// Check the keyword classifier sidecar.
	if cfg.Classifier.Enabled {
		probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if classifier.New(cfg.Classifier.BaseURL).IsRunning(probeCtx) {
			printStatus("Classifier", "running at %s (%s)", cfg.Classifier.BaseURL, cfg.Classifier.Model)
		} else {
			printStatus("Classifier", "not running (frequency fallback active)")
		}
	} else {
		printStatus("Classifier", "disabled (frequency fallback)")
	}

	// Show keyword count if server is running.
	if resp != nil && resp.StatusCode == 200 {
		kwResp, err := apiGet(client, serverURL+"/api/keywords", cfg.Server.Token)
		if err == nil {
			var payload struct {
				Keywords []string `json:"keywords"`
			}
			if json.NewDecoder(kwResp.Body).Decode(&payload) == nil {
				printStatus("Keywords", "%d distinct", len(payload.Keywords))
			}
			kwResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return client.Do(req)
}
