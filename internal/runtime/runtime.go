package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzbill/stateflo/internal/catalog"
	"github.com/rzbill/stateflo/internal/changelog"
	cfgpkg "github.com/rzbill/stateflo/internal/config"
	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/metrics"
	"github.com/rzbill/stateflo/internal/partition"
	"github.com/rzbill/stateflo/internal/state"
	boltstore "github.com/rzbill/stateflo/internal/storage/bolt"
	pebblestore "github.com/rzbill/stateflo/internal/storage/pebble"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

// ChangelogTopicPrefix prefixes the store name to form its changelog topic.
const ChangelogTopicPrefix = "changelog__"

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Backend       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	// Changelog enables mirroring of committed changes to per-partition logs.
	Changelog          bool
	ChangelogNamespace string
	RecoverBatchSize   int
	Codec              state.Codec
	Logger             logpkg.Logger
	// Registerer receives the Prometheus collectors. Nil disables metrics.
	Registerer       prometheus.Registerer
	MetricsNamespace string
	Config           cfgpkg.Config
}

// OptionsFromConfig translates a validated configuration into runtime options.
// Metrics stay disabled until the caller sets Registerer.
func OptionsFromConfig(cfg cfgpkg.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
	if err != nil {
		return Options{}, err
	}
	return Options{
		DataDir:            cfg.DataDir,
		Backend:            cfg.Backend,
		Fsync:              fsync,
		FsyncInterval:      time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
		Changelog:          cfg.Changelog.Enabled,
		ChangelogNamespace: cfg.Changelog.Namespace,
		RecoverBatchSize:   cfg.Changelog.RecoverBatchSize,
		Codec:              state.JSONCodec{},
		MetricsNamespace:   cfg.Metrics.Namespace,
		Config:             cfg,
	}, nil
}

type partitionKey struct {
	store string
	id    int32
}

// Runtime wires the state backend, the changelog database and the store
// catalog for a single-node instance. Partition handles and changelog logs are
// cached so each partition has exactly one writer.
type Runtime struct {
	opts    Options
	logger  logpkg.Logger
	metrics *metrics.Metrics

	pebble *pebblestore.DB
	bolt   *boltstore.DB
	// meta holds the catalog and the changelog logs.
	meta *pebblestore.DB

	mu      sync.Mutex
	handles map[partitionKey]*partition.Handle
	logs    map[partitionKey]*eventlog.Log
	closed  bool
}

// Open initializes the storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	if opts.DataDir == "" {
		return nil, errors.New("runtime: Options.DataDir is required")
	}
	if opts.Backend == "" {
		opts.Backend = cfgpkg.BackendPebble
	}
	if opts.ChangelogNamespace == "" {
		opts.ChangelogNamespace = "changelog"
	}
	if opts.Codec == nil {
		opts.Codec = state.JSONCodec{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	rt := &Runtime{
		opts:    opts,
		logger:  logger.WithComponent("runtime"),
		handles: make(map[partitionKey]*partition.Handle),
		logs:    make(map[partitionKey]*eventlog.Log),
	}

	if opts.Registerer != nil {
		m, err := metrics.New(opts.MetricsNamespace, opts.Registerer)
		if err != nil {
			return nil, err
		}
		rt.metrics = m
	}

	var err error
	storeDir := filepath.Join(opts.DataDir, "store")
	switch opts.Backend {
	case cfgpkg.BackendPebble:
		rt.pebble, err = pebblestore.Open(rt.pebbleOptions(storeDir))
	case cfgpkg.BackendBolt:
		bo := boltstore.Options{
			Path:   filepath.Join(storeDir, "state.db"),
			NoSync: opts.Fsync == pebblestore.FsyncModeNever,
		}
		if rt.metrics != nil {
			bo.Metrics = rt.metrics
		}
		rt.bolt, err = boltstore.Open(bo)
	default:
		err = fmt.Errorf("runtime: unknown backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	rt.meta, err = pebblestore.Open(rt.pebbleOptions(filepath.Join(opts.DataDir, "changelog")))
	if err != nil {
		_ = rt.closeStore()
		return nil, err
	}
	rt.logger.Info("runtime opened",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("backend", opts.Backend),
		logpkg.Bool("changelog", opts.Changelog))
	return rt, nil
}

func (r *Runtime) pebbleOptions(dir string) pebblestore.Options {
	po := pebblestore.Options{
		DataDir:       dir,
		Fsync:         r.opts.Fsync,
		FsyncInterval: r.opts.FsyncInterval,
		Logger:        r.opts.Logger,
	}
	if r.metrics != nil {
		po.Metrics = r.metrics
	}
	return po
}

func (r *Runtime) closeStore() error {
	if r.pebble != nil {
		return r.pebble.Close()
	}
	if r.bolt != nil {
		return r.bolt.Close()
	}
	return nil
}

// Close closes underlying resources. Handles obtained earlier must not be used
// afterwards.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.closeStore()
	if r.meta != nil {
		err = errors.Join(err, r.meta.Close())
	}
	return err
}

// CheckHealth verifies that the backend and the changelog database are readable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return errors.New("runtime closed")
	}
	if r.pebble != nil {
		it, err := r.pebble.NewIter(nil)
		if err != nil {
			return err
		}
		if err := it.Close(); err != nil {
			return err
		}
	}
	if r.bolt != nil {
		if _, err := os.Stat(r.bolt.Path()); err != nil {
			return err
		}
	}
	it, err := r.meta.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Backend returns the configured backend name.
func (r *Runtime) Backend() string { return r.opts.Backend }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.opts.Config }

// Metrics returns the collectors, or nil when metrics are disabled.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Stores lists the stores recorded in the catalog.
func (r *Runtime) Stores() ([]catalog.Meta, error) {
	return catalog.List(r.meta)
}

// ChangelogTopic returns the changelog topic name for a store.
func ChangelogTopic(store string) string { return ChangelogTopicPrefix + store }

// OpenChangelog opens the changelog log of a partition. It works whether or
// not mirroring is enabled so existing logs can still be inspected.
func (r *Runtime) OpenChangelog(store string, id int32) (*eventlog.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openChangelogLocked(store, id)
}

func (r *Runtime) openChangelogLocked(store string, id int32) (*eventlog.Log, error) {
	if r.closed {
		return nil, errors.New("runtime closed")
	}
	if id < 0 {
		return nil, fmt.Errorf("invalid partition %d", id)
	}
	if err := catalog.ValidateStoreName(store); err != nil {
		return nil, err
	}
	k := partitionKey{store: store, id: id}
	if l, ok := r.logs[k]; ok {
		return l, nil
	}
	l, err := eventlog.OpenLog(r.meta, r.opts.ChangelogNamespace, ChangelogTopic(store), uint32(id))
	if err != nil {
		return nil, err
	}
	r.logs[k] = l
	return l, nil
}

// OpenPartition returns the handle of a store partition, creating the catalog
// record on first use. Repeated calls return the same handle.
func (r *Runtime) OpenPartition(store string, id int32) (*partition.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("runtime closed")
	}
	k := partitionKey{store: store, id: id}
	if h, ok := r.handles[k]; ok {
		return h, nil
	}
	if id < 0 {
		return nil, fmt.Errorf("invalid partition %d", id)
	}
	if _, err := catalog.EnsurePartition(r.meta, store, r.opts.Backend, id); err != nil {
		return nil, err
	}

	var p partition.Partition
	if r.pebble != nil {
		p = partition.NewPebble(r.pebble, store, id)
	} else {
		p = partition.NewBolt(r.bolt, store, id)
	}
	h := &partition.Handle{
		Partition: p,
		Options: state.Options{
			Codec:  r.opts.Codec,
			Logger: r.opts.Logger,
		},
	}
	if r.metrics != nil {
		h.Options.Observer = r.metrics
	}
	if r.opts.Changelog {
		l, err := r.openChangelogLocked(store, id)
		if err != nil {
			return nil, err
		}
		h.Producer = changelog.NewProducer(l)
	}
	r.handles[k] = h
	r.logger.Debug("partition opened", logpkg.Store(store), logpkg.Partition(id))
	return h, nil
}

// Begin starts a transaction on a store partition.
func (r *Runtime) Begin(store string, id int32) (*state.PartitionTransaction, error) {
	h, err := r.OpenPartition(store, id)
	if err != nil {
		return nil, err
	}
	return h.Begin(), nil
}

// Recover replays the changelog of a store partition into its state and
// returns the number of records applied.
func (r *Runtime) Recover(ctx context.Context, store string, id int32) (int, error) {
	h, err := r.OpenPartition(store, id)
	if err != nil {
		return 0, err
	}
	l, err := r.OpenChangelog(store, id)
	if err != nil {
		return 0, err
	}
	return changelog.Recover(ctx, l, h.Partition, changelog.RecoverOptions{
		BatchSize: r.opts.RecoverBatchSize,
		Logger:    r.opts.Logger,
	})
}

// CompactChangelog compacts the changelog of a store partition against the
// changelog offset its state has already applied.
func (r *Runtime) CompactChangelog(ctx context.Context, store string, id int32) (int, error) {
	h, err := r.OpenPartition(store, id)
	if err != nil {
		return 0, err
	}
	l, err := r.OpenChangelog(store, id)
	if err != nil {
		return 0, err
	}
	n, err := changelog.Compact(ctx, l, h.Partition)
	if err != nil {
		return n, err
	}
	r.logger.Info("changelog compacted", logpkg.Store(store), logpkg.Partition(id), logpkg.Int("deleted", n))
	return n, nil
}
