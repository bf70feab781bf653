package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/config"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/debugServer"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/emulator"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/exprcheck"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/expression"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/journal"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/monitor"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/util"
	"github.gatech.edu/ECEInnovation/RISC-V-Monitor/webConsole"
)

var (
	cfgFile   string
	verbose   bool
	imagePath string
)

var rootCmd = &cobra.Command{
	Use:   "rvmon",
	Short: "RISC-V Monitor - expression debugger for an emulated RV64 machine",
	Long: `rvmon loads a program image into an emulated RV64IM machine and debugs it with
NEMU style commands: si, info, x, p, w, d and c.

Frontends:
  monitor    - interactive console
  serve-rpc  - JSON-RPC debug server (stdio or TCP)
  serve-web  - browser console over a websocket`,
	SilenceUsage: true,
}

var (
	monitorBatch bool
	rpcTCP       string
	webAddress   string
	genSeed      int64
	genDepth     int
	reportPath   string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Start the interactive console",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

var evalCmd = &cobra.Command{
	Use:   "eval EXPR...",
	Short: "Evaluate expressions against the freshly loaded machine",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEval,
}

var serveRPCCmd = &cobra.Command{
	Use:   "serve-rpc",
	Short: "Serve the monitor over JSON-RPC",
	Args:  cobra.NoArgs,
	RunE:  runServeRPC,
}

var serveWebCmd = &cobra.Command{
	Use:   "serve-web",
	Short: "Serve the monitor console to a browser",
	Args:  cobra.NoArgs,
	RunE:  runServeWeb,
}

var genExprCmd = &cobra.Command{
	Use:   "gen-expr N",
	Short: "Print N random expressions with their expected values",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenExpr,
}

var checkExprCmd = &cobra.Command{
	Use:   "check-expr FILE",
	Short: "Evaluate every case in FILE and compare against the expected values",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckExpr,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable trace logging")
	rootCmd.PersistentFlags().StringVar(&imagePath, "image", "", "program image, ELF or raw binary (default: built-in image)")

	monitorCmd.Flags().BoolVarP(&monitorBatch, "batch", "b", false, "run the program to completion without prompting")
	serveRPCCmd.Flags().StringVar(&rpcTCP, "tcp", "", "listen for TCP connections on ADDR instead of stdio (bare --tcp uses the configured address)")
	serveRPCCmd.Flags().Lookup("tcp").NoOptDefVal = "config"
	serveWebCmd.Flags().StringVar(&webAddress, "addr", "", "listen address (default from config)")
	genExprCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (default: current time)")
	genExprCmd.Flags().IntVar(&genDepth, "depth", 4, "maximum expression depth")
	checkExprCmd.Flags().StringVar(&reportPath, "report", "", "write a JSON report to this path")

	rootCmd.AddCommand(monitorCmd, evalCmd, serveRPCCmd, serveWebCmd, genExprCmd, checkExprCmd)
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if imagePath != "" {
		cfg.Machine.Image = imagePath
	}
	util.LoggingEnabled = cfg.Logging.Enabled || verbose
	util.LogEndpoint = cfg.Logging.Endpoint
	if verbose {
		util.LogEndpoint = ""
	}
	return cfg, nil
}

func newEmulator(cfg *config.Config) (*emulator.EmulatorInstance, error) {
	mem := emulator.NewMemoryImage()
	entry, err := emulator.LoadImage(mem, cfg.Machine.MemoryBase, cfg.Machine.Image)
	if err != nil {
		return nil, err
	}

	return emulator.NewEmulator(emulator.EmulatorConfig{
		Memory:            mem,
		EntryPoint:        entry,
		StackStartAddress: cfg.Machine.StackTop,
		RuntimeLimit:      cfg.Machine.RuntimeLimit,
		RuntimeErrorCallback: func(e emulator.RuntimeException) {
			util.LogF("runtime exception at pc %#x: %s", e.PC(), e.Message())
		},
	}), nil
}

// newMonitor builds the machine and the monitor around it. The returned function closes the
// journal.
func newMonitor(cfg *config.Config) (*monitor.Monitor, func(), error) {
	options, err := cfg.ExpressionOptions()
	if err != nil {
		return nil, nil, err
	}

	emu, err := newEmulator(cfg)
	if err != nil {
		return nil, nil, err
	}

	monitorOptions := monitor.Options{
		Expression:  options,
		Prompt:      cfg.Monitor.Prompt,
		HistoryFile: cfg.Monitor.HistoryFile,
		Batch:       cfg.Monitor.Batch,
		Color:       cfg.Monitor.Color,
	}

	cleanup := func() {}
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open journal: %w", err)
		}
		monitorOptions.Journal = j
		cleanup = func() { j.Close() }
	}

	return monitor.New(emu, monitorOptions), cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if monitorBatch {
		cfg.Monitor.Batch = true
	}

	m, cleanup, err := newMonitor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return m.RunConsole()
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, cleanup, err := newMonitor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	failed := 0
	for _, expr := range args {
		value, err := m.Evaluate("cli", expr)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", expr, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d (%#x)\n", value, value)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d expressions failed", failed, len(args))
	}
	return nil
}

func runServeRPC(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, cleanup, err := newMonitor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	srv := debugServer.New(m)
	switch rpcTCP {
	case "":
		srv.ListenAndServe(ctx)
		return nil
	case "config":
		return srv.ListenAndServeTCP(ctx, cfg.Server.RPCAddress)
	default:
		return srv.ListenAndServeTCP(ctx, rpcTCP)
	}
}

func runServeWeb(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if webAddress != "" {
		cfg.Server.WebAddress = webAddress
	}

	m, cleanup, err := newMonitor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	return webConsole.New(m, cfg.Server.WriteTimeout.Duration).ListenAndServe(ctx, cfg.Server.WebAddress)
}

func runGenExpr(cmd *cobra.Command, args []string) error {
	var n int
	if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n < 0 {
		return fmt.Errorf("invalid count %q", args[0])
	}

	seed := genSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	out := cmd.OutOrStdout()
	for i := 0; i < n; i++ {
		fmt.Fprintln(out, exprcheck.Generate(r, genDepth))
	}
	return nil
}

func runCheckExpr(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	options, err := cfg.ExpressionOptions()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	cases, err := exprcheck.ParseCases(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	emu, err := newEmulator(cfg)
	if err != nil {
		return err
	}
	report := exprcheck.Check(expression.NewEvaluator(emu, options), cases)

	out := cmd.OutOrStdout()
	for _, test := range report.Tests {
		if test.Status != "passed" {
			fmt.Fprintf(out, "%s failed:\n%s\n", test.Name, test.Output)
		}
	}
	fmt.Fprintf(out, "%d passed, %d failed\n", report.Passed, report.Failed)

	if reportPath != "" {
		if err := report.Save(reportPath); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
	}
	if report.Failed > 0 {
		return fmt.Errorf("expression check failed")
	}
	return nil
}
