// Package server owns the HTTP listener: route registration, the
// graceful shutdown sequence, and the address-already-in-use
// diagnostics the CLI reports when a second instance is started.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
	"github.com/cc-switch/proxy/internal/failover"
	"github.com/cc-switch/proxy/internal/forwarder"
	"github.com/cc-switch/proxy/internal/handlers"
	"github.com/cc-switch/proxy/internal/httpclient"
	"github.com/cc-switch/proxy/internal/logstore"
	"github.com/cc-switch/proxy/internal/middleware"
	"github.com/cc-switch/proxy/internal/process"
	"github.com/cc-switch/proxy/internal/providers"
	"github.com/cc-switch/proxy/internal/router"
	"github.com/cc-switch/proxy/internal/transform"
)

type Server struct {
	config  *config.Manager
	logger  *slog.Logger
	logs    *logstore.Store
	procMgr *process.Manager
	server  *http.Server
}

func New(cfg *config.Manager, logger *slog.Logger) *Server {
	return &Server{
		config:  cfg,
		logger:  logger,
		logs:    logstore.New(0, "", logger),
		procMgr: process.NewManager(cfg.BaseDir()),
	}
}

func (s *Server) Start() error {
	snapshot := s.config.Snapshot()
	addr := fmt.Sprintf("%s:%d", snapshot.Host, snapshot.Port)

	mux := s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	s.logger.Info("starting server", "address", addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
			if strings.Contains(err.Error(), "address already in use") {
				s.handleAddressInUse(addr)
				os.Exit(1)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.logger.Info("server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	_ = s.logs.Close()
	s.logger.Info("server exited")

	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	adapters := providers.NewRegistry()
	transformers := transform.NewRegistry()
	rt := router.New(s.config.Health())

	client := httpclient.New()
	if snapshot := s.config.Snapshot(); snapshot.UpstreamProxyURL != "" {
		if err := client.Init(snapshot.UpstreamProxyURL); err != nil {
			s.logger.Warn("failed to configure upstream proxy, continuing without it", "error", err)
		}
	}

	failoverMgr := failover.New(s.config, s.logger, nil)

	fw := forwarder.New(s.config, adapters, transformers, rt, failoverMgr, client, s.logs, s.logger)

	middlewareSet := middleware.NewMiddlewareSet(s.config, s.logger)
	proxyChain := middlewareSet.ProxyChain()
	adminChain := middlewareSet.AdminChain()
	healthChain := middlewareSet.HealthChain()

	mux.Handle("/health", healthChain.Handler(handlers.NewHealthHandler(s.logger)))
	mux.Handle("/status", adminChain.Handler(handlers.NewStatusHandler(s.config, s.logs)))
	mux.Handle("/providers", adminChain.Handler(handlers.NewProvidersHandler(s.config)))

	mux.Handle("/v1/messages", proxyChain.Handler(handlers.NewProxyHandler(fw, dialect.Claude)))
	mux.Handle("/v1/complete", proxyChain.Handler(handlers.NewProxyHandler(fw, dialect.Claude)))

	mux.Handle("/v1/responses", proxyChain.Handler(handlers.NewProxyHandler(fw, dialect.Codex)))
	mux.Handle("/v1/chat/completions", proxyChain.Handler(handlers.NewProxyHandler(fw, dialect.Codex)))

	mux.Handle("/v1beta/", proxyChain.Handler(handlers.NewProxyHandler(fw, dialect.Gemini)))

	return mux
}

// handleAddressInUse reports why the listener couldn't bind. Since this
// process always owns a PID file while running (internal/process), the
// overwhelmingly common cause is a second instance started against the
// same config directory — that case is answered straight from the PID
// file with no subprocesses at all. Only when the PID file doesn't
// explain it (a foreign process happens to hold the port) does this
// fall back to one OS-native lookup.
func (s *Server) handleAddressInUse(addr string) {
	s.logger.Error("address already in use", "address", addr)

	if s.procMgr.IsRunning() {
		s.logger.Error("another instance of this proxy is already running",
			"pid", s.procMgr.ReadPID())
		return
	}

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		s.logger.Error("failed to parse address", "address", addr, "error", err)
		return
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		s.logger.Error("invalid port number", "port", portStr, "error", err)
		return
	}

	pid := s.findProcessUsingPort(port)
	if pid > 0 {
		s.logger.Error("port is being used by another process",
			"port", port, "pid", pid, "process", s.getProcessInfo(pid))
	} else {
		s.logger.Error("could not determine which process is using the port", "port", port)
	}
}

// findProcessUsingPort shells out to exactly one OS-native tool per
// platform: lsof on Unix (present on every macOS install and nearly
// every Linux one; it reports the listening PID directly, unlike the
// column-scraping `ss`/`netstat` parse required on older systems) and
// netstat on Windows, which has no lsof equivalent.
func (s *Server) findProcessUsingPort(port int) int {
	if port < 1 || port > 65535 {
		return 0
	}

	switch runtime.GOOS {
	case "linux", "darwin":
		return s.runPIDLookup(exec.Command("lsof", "-ti", fmt.Sprintf(":%d", port)), parseLsofPID)
	case "windows":
		return s.runPIDLookup(exec.Command("netstat", "-ano"), windowsNetstatPIDParser(port))
	default:
		s.logger.Warn("unsupported OS for port detection", "os", runtime.GOOS)
		return 0
	}
}

// runPIDLookup runs cmd and hands its output to parse, logging at
// debug rather than failing the caller when the tool is missing or
// errors out — port-conflict diagnostics are best-effort.
func (s *Server) runPIDLookup(cmd *exec.Cmd, parse func(output string) int) int {
	output, err := cmd.Output()
	if err != nil {
		s.logger.Debug("port lookup command failed", "command", cmd.Path, "error", err)
		return 0
	}
	return parse(string(output))
}

func parseLsofPID(output string) int {
	pidStr := strings.TrimSpace(output)
	if pidStr == "" {
		return 0
	}
	pid, err := strconv.Atoi(strings.SplitN(pidStr, "\n", 2)[0])
	if err != nil {
		return 0
	}
	return pid
}

func windowsNetstatPIDParser(port int) func(string) int {
	portPattern := fmt.Sprintf(":%d ", port)

	return func(output string) int {
		for _, line := range strings.Split(output, "\n") {
			if !strings.Contains(line, portPattern) || !strings.Contains(line, "LISTENING") {
				continue
			}

			parts := strings.Fields(line)
			if len(parts) < 5 {
				continue
			}

			if pid, err := strconv.Atoi(parts[4]); err == nil {
				return pid
			}
		}
		return 0
	}
}

func (s *Server) getProcessInfo(pid int) string {
	switch runtime.GOOS {
	case "linux", "darwin":
		return s.getProcessInfoUnix(pid)
	case "windows":
		return s.getProcessInfoWindows(pid)
	default:
		return fmt.Sprintf("PID %d", pid)
	}
}

func (s *Server) getProcessInfoUnix(pid int) string {
	if pid < 1 || pid > 4194304 {
		return fmt.Sprintf("PID %d (invalid)", pid)
	}

	cmd := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=")
	output, err := cmd.Output()
	if err == nil {
		if name := strings.TrimSpace(string(output)); name != "" {
			return fmt.Sprintf("%s (PID: %d)", name, pid)
		}
	}

	return fmt.Sprintf("PID: %d", pid)
}

func (s *Server) getProcessInfoWindows(pid int) string {
	cmd := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/FO", "CSV", "/NH")
	output, err := cmd.Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 && lines[0] != "" {
			parts := strings.Split(lines[0], ",")
			if len(parts) >= 1 {
				return fmt.Sprintf("%s (PID: %d)", strings.Trim(parts[0], "\""), pid)
			}
		}
	}

	return fmt.Sprintf("PID: %d", pid)
}
