package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hookbridge/hookbridge/internal/api"
	"github.com/hookbridge/hookbridge/internal/config"
	"github.com/hookbridge/hookbridge/internal/doctor"
	"github.com/hookbridge/hookbridge/internal/events"
	"github.com/hookbridge/hookbridge/internal/filter"
	"github.com/hookbridge/hookbridge/internal/inspect"
	"github.com/hookbridge/hookbridge/internal/lock"
	"github.com/hookbridge/hookbridge/internal/log"
	"github.com/hookbridge/hookbridge/internal/pipeline"
	"github.com/hookbridge/hookbridge/internal/store"
	"github.com/hookbridge/hookbridge/internal/telemetry"
	"github.com/hookbridge/hookbridge/internal/tui/watch"
	"github.com/hookbridge/hookbridge/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	// Development convenience: a .env in the working directory feeds the
	// ${VAR} config interpolation and from_env secrets. Missing is fine.
	_ = godotenv.Load()

	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)
	case "document":
		return runDocumentNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "watch":
		return runWatch(args)
	case "inspect":
		return runDocumentInspect(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: hookbridge version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("hookbridge %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`hookbridge - Webhook-driven event ingestion gateway

Usage:
  hookbridge <noun> <action> [flags]

Core Resources (Nouns):
  system    Gateway lifecycle and health
  config    Configuration inspection and validation
  document  Stored document lookup

System Commands:
  system start      Start the gateway service in foreground
  system status     Show gateway health (config, store, PID lock)
  system watch      Real-time monitoring TUI

Config Commands:
  config check      Validate configuration and print its fingerprint
  config show       Print the resolved configuration (secrets redacted)
  config doctor     Lint configuration for runtime hazards

Document Commands:
  document inspect  Show a stored document and its metadata

General:
  --version         Show version information
  version           Show version information
  help              Show this help message

Use 'hookbridge <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		if hasHelpFlag(actionArgs) {
			printSystemStatusHelp()
			return 0
		}
		return runSystemStatus(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}

	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "doctor":
		if hasHelpFlag(actionArgs) {
			printConfigDoctorHelp()
			return 0
		}
		return runConfigDoctor(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runDocumentNoun(args []string) int {
	if len(args) < 1 {
		printDocumentNounHelp(os.Stderr)
		return 1
	}

	if isHelpToken(args[0]) {
		printDocumentNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "inspect":
		if hasHelpFlag(actionArgs) {
			printDocumentInspectHelp()
			return 0
		}
		return runDocumentInspect(actionArgs)
	case "help":
		printDocumentNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown document action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookbridge system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookbridge config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, show, doctor")
}

func printDocumentNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: hookbridge document <action> [flags]")
	fmt.Fprintln(w, "Actions: inspect")
}

func printSystemStartHelp() {
	fmt.Println("Usage: hookbridge system start [--config PATH]")
	fmt.Println("Start the gateway service in the foreground.")
}

func printSystemStatusHelp() {
	fmt.Println("Usage: hookbridge system status [--config PATH] [--json]")
	fmt.Println("Show global gateway health (config, store readiness, and PID lock state).")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  All required checks passed")
	fmt.Println("  1  One or more checks failed")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: hookbridge system watch [flags]")
	fmt.Println()
	fmt.Println("Real-time monitoring TUI.")
	fmt.Println("Shows gateway counters, per-pipeline sink outcomes, and the event stream.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --api-url URL    Gateway API URL (default: http://127.0.0.1:8080)")
	fmt.Println("  --token TOKEN    API bearer token (or HOOKBRIDGE_TOKEN env var)")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  ↑/↓, k/j         Navigate pipelines")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: hookbridge config check [--config PATH] [--json]")
	fmt.Println("Validate configuration and print the sources, fingerprint and pipeline summary.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: hookbridge config show [--config PATH] [--json]")
	fmt.Println("Print the fully resolved configuration. Secret values are redacted.")
}

func printConfigDoctorHelp() {
	fmt.Println("Usage: hookbridge config doctor [--config PATH] [--json] [--strict]")
	fmt.Println("Lint configuration for problems validation cannot catch: listener")
	fmt.Println("collisions, missing store directories, filter syntax errors, and")
	fmt.Println("advisory warnings (secret hygiene, dead pipelines, mixed sink modes).")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  No errors")
	fmt.Println("  1  Lint errors found")
	fmt.Println("  2  Warnings found with --strict")
}

func printDocumentInspectHelp() {
	fmt.Println("Usage: hookbridge document inspect <collection> <id> [--config PATH] [--json]")
	fmt.Println("Show a stored document, its event type and the collection document count.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("hookbridge starting", "version", version, "config", *configPath)

	if fp, err := config.Fingerprint(cfg.SourcePaths()); err == nil {
		logger.Info("configuration fingerprint", "blake3", fp)
	}

	if cfg.Service.PIDFile != "" {
		pidLock, err := lock.AcquirePIDLock(cfg.Service.PIDFile)
		if err != nil {
			logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.Service.PIDFile, "error", err)
			return 1
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", pidLock.Path())
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Service.Name, log.WithComponent("telemetry"))
		if err != nil {
			logger.Error("failed to initialize telemetry", "error", err)
			return 1
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	st, err := openStore(context.Background(), cfg.Store)
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.Store.Driver, "error", err)
		return 1
	}
	defer st.Close()
	logger.Info("document store opened", "driver", cfg.Store.Driver)

	// Secrets resolve here; a failure is fatal before the listener starts.
	webhookConfig, err := webhook.FromConfig(cfg)
	if err != nil {
		logger.Error("failed to configure ingest endpoints", "error", err)
		return 1
	}
	webhookConfig.ReadyCheck = st.Ping

	eval, err := filter.NewEvaluator()
	if err != nil {
		logger.Error("failed to initialize filter engine", "error", err)
		return 1
	}

	hub := events.NewHub(256)
	exec := pipeline.NewExecutor(st, eval, hub, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	webhookServer := webhook.New(webhookConfig, exec, hub, log.WithComponent("webhook"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webhookServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()
	logger.Info("ingest server enabled", "listen", webhookConfig.Listen, "endpoints", len(webhookConfig.Endpoints))

	if cfg.API.Enabled {
		apiServer := api.New(api.FromConfig(cfg), st, exec, hub, log.WithComponent("api"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("hookbridge running (press Ctrl+C to stop)")

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		exitCode = 1
	}

	// Servers stop accepting first, then the executor drains its queue so
	// every accepted event still reaches its sinks.
	wg.Wait()
	exec.Stop()

	logger.Info("hookbridge stopped")
	return exitCode
}

// openStore opens the document store selected by the config. The driver
// set is validated at load time.
func openStore(ctx context.Context, sc config.StoreConfig) (store.DocumentStore, error) {
	switch sc.Driver {
	case "postgres":
		return store.OpenPostgres(ctx, sc.DSN)
	case "redis":
		return store.OpenRedis(ctx, sc.Addr, sc.Password, sc.DB)
	default:
		return store.OpenSQLite(ctx, sc.Path)
	}
}

type statusCheck struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type statusReport struct {
	Config       statusCheck `json:"config"`
	Store        statusCheck `json:"store"`
	PIDLock      statusCheck `json:"pid_lock"`
	Fingerprint  string      `json:"fingerprint,omitempty"`
	Integrations int         `json:"integrations"`
	Pipelines    int         `json:"pipelines"`
}

func runSystemStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	var report statusReport

	cfg, err := config.Load(*configPath)
	if err != nil {
		report.Config = statusCheck{OK: false, Detail: err.Error()}
		printStatusReport(report, *jsonOut)
		return 1
	}
	report.Config = statusCheck{OK: true, Detail: *configPath}
	report.Integrations = len(cfg.Integrations)
	for _, integ := range cfg.Integrations {
		report.Pipelines += len(integ.Pipelines)
	}
	if fp, err := config.Fingerprint(cfg.SourcePaths()); err == nil {
		report.Fingerprint = fp
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if st, err := openStore(ctx, cfg.Store); err != nil {
		report.Store = statusCheck{OK: false, Detail: fmt.Sprintf("%s: %v", cfg.Store.Driver, err)}
	} else {
		if err := st.Ping(ctx); err != nil {
			report.Store = statusCheck{OK: false, Detail: fmt.Sprintf("%s: %v", cfg.Store.Driver, err)}
		} else {
			report.Store = statusCheck{OK: true, Detail: cfg.Store.Driver}
		}
		_ = st.Close()
	}

	// The PID lock state is informational: held means a gateway is
	// running, free means it is not. Neither fails the status check.
	switch {
	case cfg.Service.PIDFile == "":
		report.PIDLock = statusCheck{OK: true, Detail: "not configured"}
	default:
		held, pid, err := lock.Holder(cfg.Service.PIDFile)
		switch {
		case err != nil:
			report.PIDLock = statusCheck{OK: false, Detail: err.Error()}
		case held:
			report.PIDLock = statusCheck{OK: true, Detail: fmt.Sprintf("held by pid %d (gateway running)", pid)}
		default:
			report.PIDLock = statusCheck{OK: true, Detail: "free (gateway not running)"}
		}
	}

	printStatusReport(report, *jsonOut)

	if !report.Config.OK || !report.Store.OK || !report.PIDLock.OK {
		return 1
	}
	return 0
}

func printStatusReport(report statusReport, jsonOut bool) {
	if jsonOut {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println("Gateway status:")
	fmt.Printf("  config:   %s\n", formatCheck(report.Config))
	fmt.Printf("  store:    %s\n", formatCheck(report.Store))
	fmt.Printf("  pid lock: %s\n", formatCheck(report.PIDLock))
	if report.Fingerprint != "" {
		fmt.Printf("  fingerprint: %s\n", report.Fingerprint)
	}
	fmt.Printf("  integrations: %d, pipelines: %d\n", report.Integrations, report.Pipelines)
}

func formatCheck(c statusCheck) string {
	label := "OK"
	if !c.OK {
		label = "FAILED"
	}
	if c.Detail == "" {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, c.Detail)
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *jsonOut {
			data, _ := json.MarshalIndent(map[string]any{
				"valid": false,
				"error": err.Error(),
			}, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Fprintf(os.Stderr, "Configuration check FAILED: %v\n", err)
		}
		return 1
	}

	fingerprint, err := config.Fingerprint(cfg.SourcePaths())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fingerprint config: %v\n", err)
		return 1
	}

	type integrationSummary struct {
		Name      string `json:"name"`
		Source    string `json:"source"`
		Path      string `json:"path"`
		Pipelines int    `json:"pipelines"`
	}
	summaries := make([]integrationSummary, 0, len(cfg.Integrations))
	totalPipelines := 0
	for _, integ := range cfg.Integrations {
		summaries = append(summaries, integrationSummary{
			Name:      integ.Name,
			Source:    integ.Source,
			Path:      integ.Path,
			Pipelines: len(integ.Pipelines),
		})
		totalPipelines += len(integ.Pipelines)
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(map[string]any{
			"valid":        true,
			"sources":      cfg.SourcePaths(),
			"fingerprint":  fingerprint,
			"integrations": summaries,
			"pipelines":    totalPipelines,
		}, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Println("Configuration check PASSED")
	fmt.Printf("  sources: %d file(s)\n", len(cfg.SourcePaths()))
	for _, p := range cfg.SourcePaths() {
		fmt.Printf("    - %s\n", p)
	}
	fmt.Printf("  fingerprint: %s\n", fingerprint)
	fmt.Printf("  integrations: %d\n", len(summaries))
	for _, s := range summaries {
		fmt.Printf("    - %s (source=%s, path=%s, pipelines=%d)\n", s.Name, s.Source, s.Path, s.Pipelines)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
	}
	return 0
}

func runConfigDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	strict := fs.Bool("strict", false, "Treat warnings as errors")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	eval, err := filter.NewEvaluator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize filter engine: %v\n", err)
		return 1
	}

	result := doctor.New(cfg, eval).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if *strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runDocumentInspect(args []string) int {
	// Custom flag parsing so flags may follow the positionals, like
	// 'hookbridge document inspect <collection> <id> --json'.
	var configPath string
	var jsonOut bool

	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&jsonOut, "json", false, "Output report in JSON")

	var positionals []string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && len(positionals) < 2 {
			positionals = append(positionals, arg)
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if len(positionals) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: hookbridge document inspect <collection> <id> [--config PATH] [--json]")
		return 1
	}
	collection, id := positionals[0], positionals[1]

	if configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		configPath = discovered
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer st.Close()

	var report string
	if jsonOut {
		report, err = inspect.BuildJSONReport(ctx, st, collection, id)
	} else {
		report, err = inspect.BuildReport(ctx, st, collection, id)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect failed: %v\n", err)
		return 1
	}

	fmt.Print(report)
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://127.0.0.1:8080", "Gateway API URL")
	token := fs.String("token", os.Getenv("HOOKBRIDGE_TOKEN"), "API bearer token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: token required. Use --token or HOOKBRIDGE_TOKEN env var.")
		return 1
	}

	m := watch.New(*apiURL, *token)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}
