package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Driver names accepted by WithDriver and returned by DetectDSNType.
const (
	DriverJSON     = "json"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Defaults for backends that namespace their data.
const (
	DefaultRedisKey        = "reflectpipe:sessions"
	DefaultMongoDatabase   = "reflectpipe"
	DefaultMongoCollection = "sessions"
	badgerScheme           = "badger://"
)

// Opts holds configuration for repository constructors.
type Opts struct {
	Driver string
	DSN    string

	BadgerInMemory  bool
	RedisKey        string
	MongoDatabase   string
	MongoCollection string
}

// Option configures repository construction.
type Option func(*Opts)

// WithDriver forces a driver instead of detecting it from the DSN.
func WithDriver(driver string) Option {
	return func(o *Opts) {
		o.Driver = driver
	}
}

// WithDSN sets the DSN; the driver is detected unless WithDriver is also given.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithJSONPath selects the JSON file log at path.
func WithJSONPath(path string) Option {
	return func(o *Opts) {
		o.Driver = DriverJSON
		o.DSN = path
	}
}

// WithSQLiteDSN selects SQLite with the given database file.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.Driver = DriverSQLite
		o.DSN = dsn
	}
}

// WithPostgresDSN selects Postgres with the given connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.Driver = DriverPostgres
		o.DSN = dsn
	}
}

// WithBadgerPath selects Badger stored in directory path.
func WithBadgerPath(path string) Option {
	return func(o *Opts) {
		o.Driver = DriverBadger
		o.DSN = path
	}
}

// WithBadgerInMemory selects an in-memory Badger database.
func WithBadgerInMemory() Option {
	return func(o *Opts) {
		o.Driver = DriverBadger
		o.BadgerInMemory = true
	}
}

// WithRedisAddr selects Redis at addr, either "host:port" or a redis:// URL.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) {
		o.Driver = DriverRedis
		o.DSN = addr
	}
}

// WithRedisKey overrides the list key used by the Redis backend.
func WithRedisKey(key string) Option {
	return func(o *Opts) {
		o.RedisKey = key
	}
}

// WithMongoURI selects MongoDB at uri.
func WithMongoURI(uri string) Option {
	return func(o *Opts) {
		o.Driver = DriverMongo
		o.DSN = uri
	}
}

// WithMongoCollection overrides the MongoDB database and collection names.
func WithMongoCollection(database, collection string) Option {
	return func(o *Opts) {
		o.MongoDatabase = database
		o.MongoCollection = collection
	}
}

// DetectDSNType maps a DSN to a driver name. Anything unrecognized is treated as
// a JSON file path.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case lower == "" || lower == "memory" || lower == ":memory:":
		return DriverMemory
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"),
		strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return DriverPostgres
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return DriverRedis
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return DriverMongo
	case strings.HasPrefix(lower, badgerScheme):
		return DriverBadger
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"),
		strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return DriverSQLite
	default:
		return DriverJSON
	}
}

func applyOpts(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Driver == "" {
		cfg.Driver = DetectDSNType(cfg.DSN)
	}
	return cfg
}

// NewRepository builds the repository selected by opts.
func NewRepository(ctx context.Context, opts ...Option) (SessionRepository, error) {
	cfg := applyOpts(opts)
	slog.Debug("NewRepository invoked", "driver", cfg.Driver, "DSN_set", cfg.DSN != "")

	var (
		repo SessionRepository
		err  error
	)
	switch cfg.Driver {
	case DriverMemory:
		return NewInMemoryStore(), nil
	case DriverJSON:
		repo, err = asRepository(NewJSONFileStore(cfg.DSN))
	case DriverSQLite:
		repo, err = asRepository(NewSQLiteStore(opts...))
	case DriverPostgres:
		repo, err = asRepository(NewPostgresStore(opts...))
	case DriverBadger:
		repo, err = asRepository(NewBadgerStore(opts...))
	case DriverRedis:
		repo, err = asRepository(NewRedisStore(ctx, opts...))
	case DriverMongo:
		repo, err = asRepository(NewMongoStore(ctx, opts...))
	default:
		slog.Error("Unknown store driver", "driver", cfg.Driver)
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("Session repository opened", "driver", cfg.Driver)
	return repo, nil
}

// asRepository drops typed nil pointers so a failed constructor never yields a
// non-nil interface.
func asRepository(r SessionRepository, err error) (SessionRepository, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
