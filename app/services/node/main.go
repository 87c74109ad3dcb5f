package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/poolchain/app/services/node/handlers"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/poolchain/foundation/blockchain/peer"
	"github.com/ardanlabs/poolchain/foundation/blockchain/pool"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ardanlabs/poolchain/foundation/blockchain/state"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/poolchain/foundation/blockchain/worker"
	"github.com/ardanlabs/poolchain/foundation/events"
	"github.com/ardanlabs/poolchain/foundation/logger"
	"github.com/ardanlabs/poolchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// config is all the configuration for the node and the default values.
type config struct {
	conf.Version
	Web struct {
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:10s"`
		IdleTimeout     time.Duration `conf:"default:120s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
		DebugHost       string        `conf:"default:0.0.0.0:7080"`
		PublicHost      string        `conf:"default:0.0.0.0:8080"`
		PrivateHost     string        `conf:"default:0.0.0.0:9080"`
	}
	State struct {
		Name           string   `conf:"default:miner1"`
		KeyPath        string   `conf:"default:zblock/accounts/miner1.ecdsa"`
		GenesisPath    string   `conf:"default:zblock/genesis.json"`
		Storage        string   `conf:"default:leveldb,help:memory disk or leveldb"`
		DBPath         string   `conf:"default:zblock/blocks.db"`
		SelectStrategy string   `conf:"default:oldest"`
		KnownPeers     []string `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
		TLS            bool     `conf:"default:false"`
	}
	Mining struct {
		Threads       int           `conf:"default:0,help:zero uses every cpu"`
		Difficulty    uint          `conf:"default:0,help:zero uses the genesis difficulty"`
		BuildInterval time.Duration `conf:"default:10s"`
		SweepInterval time.Duration `conf:"default:5s"`
		PeerInterval  time.Duration `conf:"default:1m"`
	}
	Pool struct {
		Enabled            bool          `conf:"default:true"`
		MaxRequests        int           `conf:"default:0,help:zero uses the genesis value"`
		Timeout            time.Duration `conf:"default:5s"`
		Proxy              string
		ProxyUser          string
		ProxyPass          string `conf:"mask"`
		InsecureSkipVerify bool   `conf:"default:false"`
	}
	Log struct {
		File string
	}
	NameService struct {
		Folder string `conf:"default:zblock/accounts/"`
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Println("startup: ERROR:", err)
		os.Exit(1)
	}
}

func run() error {

	// =========================================================================
	// Configuration

	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "pool mining blockchain node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// Logging

	log, closer, err := newLogger(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer closer.Close()
	defer log.Sync()

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The names come from the file names in the accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load name service: %w", err)
	}

	for key, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "key", key)
	}

	// =========================================================================
	// Blockchain Support

	// The node's key identifies it as a miner and is credited with the
	// reward for blocks it finds.
	privateKey, err := crypto.LoadECDSA(cfg.State.KeyPath)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}
	publicKey := signature.PublicKeyToString(privateKey.PublicKey)

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return err
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client connected through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	store, err := openStorage(cfg.State.Storage, cfg.State.DBPath, ev)
	if err != nil {
		return err
	}

	peerSet := peer.NewPeerSet()
	for _, host := range cfg.State.KnownPeers {
		peerSet.Add(peer.New(host))
	}

	client := pool.NewClient(pool.ClientConfig{
		Timeout:            cfg.Pool.Timeout,
		Build:              build,
		Proxy:              cfg.Pool.Proxy,
		ProxyUser:          cfg.Pool.ProxyUser,
		ProxyPass:          cfg.Pool.ProxyPass,
		InsecureSkipVerify: cfg.Pool.InsecureSkipVerify,
	})

	st, err := state.New(state.Config{
		PublicKey:           publicKey,
		Host:                cfg.Web.PrivateHost,
		Name:                cfg.State.Name,
		TLS:                 cfg.State.TLS,
		Storage:             store,
		Genesis:             gen,
		SelectStrategy:      cfg.State.SelectStrategy,
		KnownPeers:          peerSet,
		Client:              client,
		Threads:             cfg.Mining.Threads,
		Difficulty:          cfg.Mining.Difficulty,
		MaxPoolRequests:     cfg.Pool.MaxRequests,
		AcceptsPoolRequests: cfg.Pool.Enabled,
		EvHandler:           ev,
	})
	if err != nil {
		store.Close()
		return err
	}
	defer st.Shutdown()

	// The worker registers itself with the state.
	worker.Run(st, worker.Config{
		BuildInterval: cfg.Mining.BuildInterval,
		SweepInterval: cfg.Mining.SweepInterval,
		PeerInterval:  cfg.Mining.PeerInterval,
		EvHandler:     ev,
	})

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, st)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
	})

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		evts.Shutdown()

		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// =============================================================================

// nopCloser is returned when there is no log file to close.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger constructs the service logger, writing to a rotated file as
// well as stdout when a file is configured.
func newLogger(file string) (*zap.SugaredLogger, io.Closer, error) {
	const service = "NODE"

	if file == "" {
		log, err := logger.New(service)
		if err != nil {
			return nil, nil, err
		}
		return log, nopCloser{}, nil
	}

	return logger.NewWithFile(service, file)
}

// openStorage opens the block store of the configured kind.
func openStorage(kind string, dbPath string, ev func(v string, args ...any)) (database.Storage, error) {
	switch kind {
	case "memory":
		return memory.New()
	case "disk":
		return disk.New(dbPath)
	case "leveldb":
		return leveldb.New(dbPath, ev)
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}
