// Command sequenced runs one node of the sequencer network: it wires
// pkg/store's state machine into an in-process CometBFT node via
// pkg/consensus's ABCI++ application, and starts the mempool submission
// service and query surfaces alongside it. Grounded on the teacher's own
// node.NewNode wiring (pkg/consensus/bft_integration.go's
// NewRealCometBFTEngine): a privval key and node key loaded from the
// standard CometBFT config locations, a local (in-process) ABCI client
// creator rather than a socket, and an on-disk dbm.DB for both CometBFT's
// own data and this application's state store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	tmconfig "github.com/cometbft/cometbft/config"
	"google.golang.org/grpc"

	"github.com/astria/sequencer/pkg/actions"
	"github.com/astria/sequencer/pkg/config"
	"github.com/astria/sequencer/pkg/consensus"
	"github.com/astria/sequencer/pkg/dbarchive"
	"github.com/astria/sequencer/pkg/grpcsrv"
	"github.com/astria/sequencer/pkg/kvdb"
	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/pricefeed"
	"github.com/astria/sequencer/pkg/queryhttp"
	"github.com/astria/sequencer/pkg/store"
	"github.com/astria/sequencer/pkg/upgrade"
)

func main() {
	homeDir := flag.String("home", os.Getenv("ASTRIA_HOME"), "CometBFT home directory (config/, data/)")
	configFile := flag.String("config", "", "node config YAML, overriding config.Default()")
	flag.Parse()

	if *homeDir == "" {
		log.Fatal("sequenced: -home (or ASTRIA_HOME) is required")
	}

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("sequenced: load config: %v", err)
		}
	}

	if err := run(*homeDir, cfg); err != nil {
		log.Fatalf("sequenced: %v", err)
	}
}

func run(homeDir string, cfg *config.Config) error {
	appDB, err := dbm.NewDB("sequencer_state", dbm.BackendType("goleveldb"), filepath.Join(homeDir, "data"))
	if err != nil {
		return fmt.Errorf("open state db: %w", err)
	}
	st := store.New(kvdb.New(appDB), 0)

	upgrades, err := loadUpgrades(cfg)
	if err != nil {
		return fmt.Errorf("load upgrades: %w", err)
	}

	var genesis *config.Genesis
	if cfg.GenesisFile != "" {
		genesis, err = config.LoadGenesis(filepath.Join(homeDir, cfg.GenesisFile))
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
	}

	liveFees := actions.NewLiveFeeSchedule(st)
	mp := mempool.New(st, cfg.ChainID, liveFees)

	var priceClient pricefeed.Client
	if !cfg.NoPriceFeed {
		priceClient = pricefeed.NewHTTPClient(cfg.PriceFeedSidecarURL, time.Duration(cfg.PriceFeedClientTimeoutMs)*time.Millisecond)
	}

	app := consensus.New(st, mp, cfg.ChainID, liveFees, upgrades, priceClient, !cfg.NoPriceFeed, genesis)

	var archive *dbarchive.Client
	if cfg.ArchiveDatabaseURL != "" {
		archive, err = dbarchive.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("open archive db: %w", err)
		}
		defer archive.Close()
		if err := archive.MigrateUp(context.Background()); err != nil {
			return fmt.Errorf("migrate archive db: %w", err)
		}
		app.SetArchiveSink(func(height int64, appHash []byte, txHashes [][]byte, rollupTxs consensus.RollupTransactions, fullTxs [][]byte) {
			archiveRollupTxs := dbarchive.RollupTransactions{Order: rollupTxs.Order, ByID: rollupTxs.ByID}
			if err := archive.RecordBlock(context.Background(), height, appHash, txHashes, archiveRollupTxs, fullTxs); err != nil {
				log.Printf("sequenced: archive block %d: %v", height, err)
			}
		})
	}

	var broadcaster *grpcsrv.Broadcaster
	if !cfg.NoOptimisticBlocks {
		broadcaster = grpcsrv.NewBroadcaster()
		app.SetOptimisticBlockSink(func(height int64, txs [][]byte) {
			broadcaster.Publish(grpcsrv.OptimisticBlock{Height: height, Txs: txs})
		})
	}

	cometNode, err := startCometBFT(homeDir, app)
	if err != nil {
		return fmt.Errorf("start cometbft node: %w", err)
	}
	defer cometNode.Stop() //nolint:errcheck

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&grpcsrv.ServiceDesc, grpcsrv.NewServer(mp, broadcaster))
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Printf("sequenced: grpc server stopped: %v", err)
		}
	}()
	defer grpcServer.GracefulStop()

	mux := http.NewServeMux()
	handlers := queryhttp.NewHandlers(app)
	if archive != nil {
		handlers = handlers.WithArchive(archive)
	}
	handlers.RegisterRoutes(mux)
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("sequenced: http server stopped: %v", err)
		}
	}()
	defer httpServer.Close()

	select {}
}

// loadUpgrades builds the activation-height scheduler from either an
// explicit upgrades file or the single built-in Aspen upgrade named in
// config (spec §9's single-named-upgrade default), matching pkg/upgrade's
// own two constructors.
func loadUpgrades(cfg *config.Config) (*upgrade.Scheduler, error) {
	if cfg.UpgradesFile != "" {
		return upgrade.LoadFile(cfg.UpgradesFile)
	}
	return upgrade.DefaultScheduler(cfg.AspenActivationHeight), nil
}

// startCometBFT constructs and starts an in-process CometBFT node talking
// to app over a local (in-memory) ABCI client rather than a socket,
// following the teacher's own node.NewNode wiring.
func startCometBFT(homeDir string, app *consensus.App) (*node.Node, error) {
	cometCfg := tmconfig.DefaultConfig()
	cometCfg.SetRoot(homeDir)

	pv := privval.LoadFilePV(cometCfg.PrivValidatorKeyFile(), cometCfg.PrivValidatorStateFile())
	nodeKey, err := p2p.LoadNodeKey(cometCfg.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("load node key: %w", err)
	}

	dbProvider := tmconfig.DBProvider(func(ctx *tmconfig.DBContext) (dbm.DB, error) {
		return dbm.NewDB(ctx.ID, dbm.BackendType(cometCfg.DBBackend), filepath.Join(cometCfg.RootDir, "data"))
	})

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)).With("module", "cometbft")

	n, err := node.NewNode(
		cometCfg,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		node.DefaultGenesisDocProviderFunc(cometCfg),
		dbProvider,
		node.DefaultMetricsProvider(cometCfg.Instrumentation),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("new node: %w", err)
	}

	if err := n.Start(); err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}
	return n, nil
}
