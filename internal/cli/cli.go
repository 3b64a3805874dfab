// Package cli implements the demo harness for siriinsert: "serve" runs a
// small node (a local pool plus any configured remote peers) behind the
// wire protocol of spec §6; "bench" exercises the classify+dispatch path
// in-process against a synthetic payload. Neither is the "top-level TCP
// server" spec.md §1 puts out of scope — both are minimal glue so the
// in-scope components run against real collaborator implementations.
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"siriinsert/internal/classify"
	"siriinsert/internal/config"
	"siriinsert/internal/dispatch"
	"siriinsert/internal/logger"
	"siriinsert/internal/pool"
	"siriinsert/internal/respond"
	"siriinsert/internal/series"
	"siriinsert/internal/storage"
	"siriinsert/internal/transport"
	"siriinsert/internal/wire"
)

const version = "siriinsert 0.1.0-dev"

// Execute dispatches CLI subcommands.
func Execute(args []string) int {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[siriinsert] ")

	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:])
	case "bench":
		return runBench(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version", "-v":
		fmt.Println(version)
		return 0
	default:
		log.Printf("Unknown subcommand: %s", args[0])
		printUsage()
		return 1
	}
}

type systemClock struct{}

func (systemClock) NowMs() int64 { return time.Now().UnixMilli() }

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var configPath string
	fs.StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&configPath, "c", "", "Configuration file path (YAML)")
	if err := fs.Parse(args); err != nil {
		return errorToExitCode(err)
	}
	if configPath == "" {
		log.Println("the --config flag is required")
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 2
	}

	if err := initLogger(cfg, "serve"); err != nil {
		log.Printf("failed to initialize logging: %v", err)
		return 1
	}
	defer logger.Close()
	logger.Console("siriinsert node starting: %s", cfg.Summary())

	store := storage.NewStore()
	reg := series.New(store.NewHandle)
	router := pool.New(cfg.PoolCount)
	limiter := transport.NewSendLimiter(10000, 1000)

	peers := transport.NewRegistry()
	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for poolID, peer := range cfg.Peers {
		client, err := transport.DialPeer(dialCtx, peer.Addr, limiter)
		if err != nil {
			logger.Error("failed to dial pool %d at %s: %v", poolID, peer.Addr, err)
			return 1
		}
		peers.AddPeer(poolID, client)
	}
	defer peers.Close()

	disp := dispatch.New(cfg.LocalPoolID, reg, store, peers, systemClock{}, time.Duration(cfg.InsertTimeoutMs)*time.Millisecond)
	limits := classify.Limits{TsMin: cfg.TsMin, TsMax: cfg.TsMax}

	srv, err := transport.Listen(cfg.ListenAddr, insertHandler(router, limits, disp))
	if err != nil {
		logger.Error("failed to listen on %s: %v", cfg.ListenAddr, err)
		return 1
	}
	logger.Console("listening on %s (local_pool=%d pool_count=%d)", cfg.ListenAddr, cfg.LocalPoolID, cfg.PoolCount)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Console("signal %v received, shutting down", sig)
	srv.Close()
	return 0
}

// insertHandler adapts the classify/dispatch/respond pipeline to a
// transport.Handler: classification failures are tier-1/tier-3 errors
// (spec §7) that fail the whole request; a dispatch outcome with any
// pool failures is reported but does not prevent a reply.
func insertHandler(router *pool.Router, limits classify.Limits, disp *dispatch.Dispatcher) transport.Handler {
	return func(ctx context.Context, body []byte) (transport.PackageType, []byte) {
		result, err := classify.Classify(wire.NewDecoder(body), limits, router)
		if err != nil {
			return transport.ResInsertError, respond.Error(err.Error())
		}
		outcome, err := disp.Dispatch(ctx, result)
		if err != nil {
			return transport.ResInsertError, respond.Error(err.Error())
		}
		if len(outcome.Failures) > 0 {
			return transport.ResInsertError, respond.FromOutcome(outcome)
		}
		return transport.ResInsertSuccess, respond.FromOutcome(outcome)
	}
}

// noRemoteTransport is bench's stand-in Transport: bench always runs
// with pool_count=1, so every series routes to the local pool and this
// is never actually invoked.
type noRemoteTransport struct{}

func (noRemoteTransport) Send(ctx context.Context, poolID uint16, body []byte) error {
	return fmt.Errorf("bench: no remote pools configured (pool %d)", poolID)
}

func runBench(args []string) int {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var seriesCount int
	var pointsPerSeries int
	fs.IntVar(&seriesCount, "series", 1000, "number of distinct series to generate")
	fs.IntVar(&pointsPerSeries, "points", 10, "points per series")
	if err := fs.Parse(args); err != nil {
		return errorToExitCode(err)
	}

	store := storage.NewStore()
	reg := series.New(store.NewHandle)
	router := pool.New(1)
	disp := dispatch.New(0, reg, store, noRemoteTransport{}, systemClock{}, dispatch.DefaultTimeout)
	limits := classify.Limits{TsMin: 0, TsMax: 9_999_999_999_999}

	enc := wire.NewEncoder(seriesCount * pointsPerSeries * 24)
	enc.OpenMap()
	for i := 0; i < seriesCount; i++ {
		enc.PushRawTerm([]byte(fmt.Sprintf("bench.series.%d", i)))
		enc.OpenArray()
		for j := 0; j < pointsPerSeries; j++ {
			enc.OpenArrayN(2)
			enc.PushInt(int64(1_700_000_000_000 + j))
			enc.PushDouble(float64(j))
		}
		enc.CloseArray()
	}
	enc.CloseMap()

	start := time.Now()
	result, err := classify.Classify(wire.NewDecoder(enc.Bytes()), limits, router)
	if err != nil {
		log.Printf("classification failed: %v", err)
		return 1
	}
	outcome, err := disp.Dispatch(context.Background(), result)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("dispatch failed: %v", err)
		return 1
	}

	rate := float64(outcome.TotalPoints) / elapsed.Seconds()
	fmt.Printf("classified+dispatched %d point(s) across %d series in %s (%.0f points/sec)\n",
		outcome.TotalPoints, seriesCount, elapsed, rate)

	_, msg := decodeSingleMapEntry(respond.FromOutcome(outcome))
	fmt.Println(msg)

	if len(outcome.Failures) > 0 {
		return 1
	}
	return 0
}

func decodeSingleMapEntry(body []byte) (string, string) {
	dec := wire.NewDecoder(body)
	var v wire.Value
	if tok, err := dec.Next(&v); err != nil || tok != wire.TokenMapOpen {
		return "", ""
	}
	tok, err := dec.Next(&v)
	if err != nil || tok != wire.TokenRawTerm {
		return "", ""
	}
	key := string(v.Raw)

	tok, err = dec.Next(&v)
	if err != nil || tok != wire.TokenRawTerm {
		return key, ""
	}
	return key, string(v.Raw)
}

func errorToExitCode(err error) int {
	if err == flag.ErrHelp {
		return 0
	}
	log.Printf("command failed: %v", err)
	return 1
}

func printUsage() {
	binary := filepath.Base(os.Args[0])
	fmt.Printf(`siriinsert - clustered time-series insert pipeline (prototype)

Usage:
  %[1]s <command> [options]

Available commands:
  serve    Run a node: local pool + configured remote peers behind the wire protocol
  bench    Classify and dispatch a synthetic payload in-process and report timing
  help     Show this help
  version  Show version info

Examples:
  %[1]s serve --config siriinsert.yaml
  %[1]s bench --series 5000 --points 20
`, binary)
}

// initLogger configures project logging for the given subcommand.
func initLogger(cfg *config.Config, mode string) error {
	level := logger.ParseLevel(cfg.Log.Level)
	logDir := cfg.Log.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if err := logger.Init(logDir, level, fmt.Sprintf("siriinsert_%s", mode)); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	log.SetOutput(logger.Writer())
	return nil
}
