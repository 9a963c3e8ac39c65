package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/cragtree/pkg/hierarchy"
	"github.com/malbeclabs/cragtree/pkg/loader"
)

const (
	EnvInputFile       = "PARQUET_FILE"
	EnvPGHost          = "PGHOST"
	EnvPGPort          = "PGPORT"
	EnvPGDatabase      = "PGDATABASE"
	EnvPGUser          = "PGUSER"
	EnvPGPassword      = "PGPASSWORD"
	EnvPGSSLMode       = "PGSSLMODE"
	EnvBatchSize       = "SEED_BATCH_SIZE"
	EnvGapPolicy       = "SEED_GAP_POLICY"
	EnvProjectorConfig = "SEED_PROJECTOR_CONFIG"
	EnvRollup          = "SEED_ROLLUP"

	DefaultInputFile = "../parquet-exporter/openbeta-climbs.parquet"
	defaultHost      = "localhost"
	defaultPort      = "5432"
	defaultUser      = "postgres"
	defaultPassword  = "postgres"
	defaultSSLMode   = "prefer"
)

var (
	ErrMissingInput = errors.New("input file is required")
	ErrMissingHost  = errors.New("postgres host is required")
)

// managedHostMarkers are host substrings of hosted Postgres offerings that
// refuse plaintext connections.
var managedHostMarkers = []string{"supabase", "pooler"}

type Postgres struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN returns a postgres:// connection URI.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}

// RedactedDSN masks the password in a postgres:// URI or a libpq key=value
// string so it can be logged.
func RedactedDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		parsed, err := url.Parse(dsn)
		if err != nil {
			return "[REDACTED: invalid URI]"
		}
		if parsed.User != nil {
			if _, ok := parsed.User.Password(); ok {
				parsed.User = url.UserPassword(parsed.User.Username(), "REDACTED")
			}
		}
		return parsed.String()
	}
	if strings.Contains(dsn, "password=") {
		parts := strings.Fields(dsn)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=REDACTED"
			}
		}
		return strings.Join(parts, " ")
	}
	return dsn
}

// sslModeFor returns the explicit mode when set, otherwise require for
// managed hosts and prefer for everything else.
func sslModeFor(host, explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, m := range managedHostMarkers {
		if strings.Contains(host, m) {
			return "require"
		}
	}
	return defaultSSLMode
}

type Config struct {
	Schema   string
	Input    string
	Postgres Postgres

	BatchSize       int
	GapPolicy       hierarchy.GapPolicy
	ProjectorConfig string
	Rollup          bool
	SortRows        bool
	DryRun          bool

	Verbose     bool
	MetricsAddr string
}

// Defaults are the per-binary values used when neither env nor flags set one.
type Defaults struct {
	Schema   string
	Database string
	Rollup   bool
}

func (cfg *Config) Validate() error {
	if _, err := loader.SchemaByName(cfg.Schema); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Input) == "" {
		return ErrMissingInput
	}
	// A dry run never contacts the store.
	if !cfg.DryRun {
		if cfg.Postgres.Host == "" {
			return ErrMissingHost
		}
		port, err := strconv.Atoi(cfg.Postgres.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid postgres port %q", cfg.Postgres.Port)
		}
		if cfg.Postgres.Database == "" {
			return errors.New("postgres database is required")
		}
		if cfg.Postgres.User == "" {
			return errors.New("postgres user is required")
		}
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if _, err := hierarchy.ParseGapPolicy(string(cfg.GapPolicy)); err != nil {
		return err
	}
	return nil
}

// Load resolves the configuration from built-in defaults, then env, then
// args. getenv is usually os.Getenv.
func Load(name string, args []string, getenv func(string) string, d Defaults) (*Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	batchSize := loader.DefaultBatchSize
	if v := env(EnvBatchSize, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvBatchSize, v, err)
		}
		batchSize = n
	}
	rollup := d.Rollup
	if v := env(EnvRollup, ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvRollup, v, err)
		}
		rollup = b
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg := &Config{Schema: d.Schema}
	fs.StringVar(&cfg.Input, "input", env(EnvInputFile, DefaultInputFile), "parquet or csv file, local path or s3:// URI (or set PARQUET_FILE env var)")
	fs.StringVar(&cfg.Postgres.Host, "pg-host", env(EnvPGHost, defaultHost), "postgres host (or set PGHOST env var)")
	fs.StringVar(&cfg.Postgres.Port, "pg-port", env(EnvPGPort, defaultPort), "postgres port (or set PGPORT env var)")
	fs.StringVar(&cfg.Postgres.Database, "pg-database", env(EnvPGDatabase, d.Database), "postgres database (or set PGDATABASE env var)")
	fs.StringVar(&cfg.Postgres.User, "pg-user", env(EnvPGUser, defaultUser), "postgres user (or set PGUSER env var)")
	fs.StringVar(&cfg.Postgres.SSLMode, "pg-sslmode", env(EnvPGSSLMode, ""), "postgres sslmode; require is used for managed hosts when unset (or set PGSSLMODE env var)")
	fs.IntVar(&cfg.BatchSize, "batch-size", batchSize, "routes committed per transaction (or set SEED_BATCH_SIZE env var)")
	gapPolicy := fs.String("gap-policy", env(EnvGapPolicy, string(hierarchy.GapSkip)), "rows with a blank level before a set one: skip or truncate (or set SEED_GAP_POLICY env var)")
	fs.StringVar(&cfg.ProjectorConfig, "projector-config", env(EnvProjectorConfig, ""), "YAML file with missing-value rules (or set SEED_PROJECTOR_CONFIG env var)")
	fs.BoolVar(&cfg.Rollup, "rollup", rollup, "recompute total_climbs over each subtree after loading (or set SEED_ROLLUP env var)")
	fs.BoolVar(&cfg.SortRows, "sort-rows", false, "sort source rows by climb_id before building")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "build the hierarchy and print a summary without touching postgres")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose (debug) logging")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "address to listen on for prometheus metrics; disabled when empty")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Postgres.Password = env(EnvPGPassword, defaultPassword)
	cfg.Postgres.SSLMode = sslModeFor(cfg.Postgres.Host, cfg.Postgres.SSLMode)
	gp, err := hierarchy.ParseGapPolicy(*gapPolicy)
	if err != nil {
		return nil, err
	}
	cfg.GapPolicy = gp

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
