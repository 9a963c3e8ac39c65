package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/cragtree/pkg/config"
	"github.com/malbeclabs/cragtree/pkg/loader"
	"github.com/malbeclabs/cragtree/pkg/logger"
	"github.com/malbeclabs/cragtree/pkg/metrics"
	"github.com/malbeclabs/cragtree/pkg/pg"
	"github.com/malbeclabs/cragtree/pkg/project"
	"github.com/malbeclabs/cragtree/pkg/source"
)

// BuildInfo is set by each binary from its LDFLAGS.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// RunCLI is the shared body of the seed binaries.
func RunCLI(name string, defaults config.Defaults, build BuildInfo, args []string, stdout io.Writer) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(name, args, os.Getenv, defaults)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.New(cfg.Verbose)
	ctx := context.Background()

	schema, err := loader.SchemaByName(cfg.Schema)
	if err != nil {
		return err
	}

	policy := project.DefaultPolicy()
	if cfg.ProjectorConfig != "" {
		policy, err = project.LoadPolicy(cfg.ProjectorConfig)
		if err != nil {
			return err
		}
		log.Info("seed: loaded projector policy", "path", cfg.ProjectorConfig)
	}

	if cfg.MetricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.Date, schema.Name).Set(1)
		go func() {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, mux); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	sourceCfg := source.Config{Logger: log}
	if cfg.SortRows {
		sourceCfg.SortColumn = "climb_id"
	}
	var objects source.HeadObjectAPI
	if source.IsS3URI(cfg.Input) {
		s3Cfg, err := source.LoadS3ConfigFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load S3 config: %w", err)
		}
		client, err := source.NewS3Client(ctx, s3Cfg)
		if err != nil {
			return err
		}
		sourceCfg.S3 = s3Cfg
		objects = client
	}
	reader, err := source.NewReader(ctx, sourceCfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	dsn := cfg.Postgres.DSN()
	p, err := New(Config{
		Logger:    log,
		Schema:    schema,
		Input:     cfg.Input,
		Reader:    reader,
		Objects:   objects,
		Policy:    policy,
		GapPolicy: cfg.GapPolicy,
		BatchSize: cfg.BatchSize,
		Rollup:    cfg.Rollup,
		DryRun:    cfg.DryRun,
		Connect: func(ctx context.Context) (Store, error) {
			store, err := pg.Connect(ctx, pg.Config{Logger: log, DSN: dsn})
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})
	if err != nil {
		return err
	}

	log.Info("seed: starting", "schema", schema.Name, "input", cfg.Input, "postgres", config.RedactedDSN(dsn),
		"gapPolicy", string(cfg.GapPolicy), "rollup", cfg.Rollup, "dryRun", cfg.DryRun)
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	report.Render(stdout)
	log.Info("seed: done", "areas", report.Areas, "routes", report.RouteLoad.Inserted, "skipped", report.SkippedTotal())
	return nil
}
