// Command csvsplit splits a large delimited-text file into row-bounded output
// files, optionally transforming rows and writing another format.
//
//	csvsplit -config split.json
//	csvsplit -source data.csv -out parts -format jsonl -max-rows 50000 -parallel
//
// Flags override the config file; CSVSPLIT_* environment variables (also read
// from a .env file) override both.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"csvsplit/internal/config"
	"csvsplit/internal/engine"
	"csvsplit/internal/metrics"
	"csvsplit/internal/metrics/datadog"
	"csvsplit/internal/metrics/prompush"
	"csvsplit/internal/run"

	// register all backends with the manifest factory.
	_ "csvsplit/internal/manifest/all"
)

func main() {
	var (
		cfgPath    string
		envFile    string
		source     string
		outDir     string
		format     string
		maxRows    int
		parallel   bool
		workers    int
		chunkBytes int64
		stats      bool
		quiet      bool
		validate   bool
		backendFlg string
		gatewayURL string
		dogstatsd  string
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (optional)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file to load before applying CSVSPLIT_* overrides")
	flag.StringVar(&source, "source", "", "source CSV path")
	flag.StringVar(&outDir, "out", "", "output directory")
	flag.StringVar(&format, "format", "", "output format: "+strings.Join(config.FormatNames(), ", "))
	flag.IntVar(&maxRows, "max-rows", 0, "max data rows per output file")
	flag.BoolVar(&parallel, "parallel", false, "split byte ranges in parallel")
	flag.IntVar(&workers, "workers", 0, "parallel workers (default: NumCPU)")
	flag.Int64Var(&chunkBytes, "chunk-bytes", 0, "max bytes per partition")
	flag.BoolVar(&stats, "stats", false, "collect per-column statistics")
	flag.BoolVar(&quiet, "quiet", false, "suppress progress logs")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.StringVar(&backendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog, none (env METRICS_BACKEND)")
	flag.StringVar(&gatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsd, "dogstatsd-addr", "", "DogStatsD address (env DD_DOGSTATSD_ADDR)")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("env: %s: %v", envFile, err)
	}

	var cfg config.Config
	if cfgPath != "" {
		c, err := config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
		cfg = c
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source.Path = source
		case "out":
			cfg.Output.Dir = outDir
		case "format":
			cfg.Output.Format = format
		case "max-rows":
			cfg.Output.MaxRowsPerFile = maxRows
		case "parallel":
			cfg.Runtime.UseParallel = parallel
		case "workers":
			cfg.Runtime.WorkerCount = workers
		case "chunk-bytes":
			cfg.Runtime.ChunkSizeBytes = chunkBytes
		case "stats":
			cfg.GenerateStats = stats
		case "quiet":
			cfg.Quiet = quiet
		}
	})
	cfg = cfg.ApplyEnv().WithDefaults()

	issues := config.ValidateConfig(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(2)
	}
	if validate {
		log.Printf("configuration is valid")
		return
	}

	setupMetrics(cfg.Job, backendFlg, gatewayURL, dogstatsd)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run.Execute(ctx, cfg)
	if res != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			log.Printf("encode result: %v", encErr)
		}
	}
	if err != nil {
		log.Printf("%v", err)
		stop()
		_ = metrics.Flush()
		os.Exit(exitCode(err))
	}
}

// setupMetrics picks the backend: flag, then env, then none.
func setupMetrics(job, name, gwURL, ddAddr string) {
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	switch name {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=%s url=%s job=%s", name, gwURL, job)
		metrics.SetBackend(b)

	case "datadog":
		if ddAddr == "" {
			ddAddr = os.Getenv("DD_DOGSTATSD_ADDR")
		}
		if ddAddr == "" {
			ddAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       ddAddr,
			Namespace:  "csvsplit.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=%s addr=%s job=%s", name, ddAddr, job)
		metrics.SetBackend(b)

	case "", "none":
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrConfigurationInvalid):
		return 2
	case errors.Is(err, engine.ErrSourceUnavailable):
		return 3
	default:
		return 1
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
