// This program performs administrative tasks against a node's block store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/poolchain/app/tooling/admin/commands"
	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/poolchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/poolchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// Defaults used when the environment does not override them.
const (
	defaultDBPath  = "zblock/blocks.db"
	defaultStorage = "leveldb"
)

func main() {
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 2 {
		return errors.New("usage: admin blocks|verify")
	}

	log.Infow("startup", "version", build, "command", os.Args[1])

	gen, err := genesis.Load(env("ADMIN_GENESIS_PATH", genesis.DefaultPath))
	if err != nil {
		return err
	}

	strg, err := open(env("ADMIN_STORAGE", defaultStorage), env("ADMIN_DB_PATH", defaultDBPath), log)
	if err != nil {
		return err
	}
	defer strg.Close()

	return processCommands(os.Args, strg, gen)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, strg database.Storage, gen genesis.Genesis) error {
	switch args[1] {
	case "blocks":
		if err := commands.Blocks(os.Stdout, strg); err != nil {
			return fmt.Errorf("listing blocks: %w", err)
		}

	case "verify":
		bad, err := commands.Verify(os.Stdout, strg, gen.Difficulty)
		if err != nil {
			return fmt.Errorf("verifying blocks: %w", err)
		}
		if bad > 0 {
			return fmt.Errorf("%d invalid blocks", bad)
		}

	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}

func open(kind string, dbPath string, log *zap.SugaredLogger) (database.Storage, error) {
	switch kind {
	case "disk":
		return disk.New(dbPath)
	case "leveldb":
		return leveldb.New(dbPath, func(v string, args ...any) { log.Infof(v, args...) })
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}

func env(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
