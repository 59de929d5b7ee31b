// Command codechain is the node entry point: it loads the node's TOML
// runtime config and the chain's JSON consensus scheme (spec §6.5), opens
// the backup database, and constructs the Tendermint engine. Wiring the
// engine to a live block executor/P2P stack is an external collaborator
// (spec §1); this command stops at constructing and reporting a ready
// engine, the boundary the consensus-core repository owns.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/signer"
	"github.com/codechain-io/codechain/consensus/tendermint"
	"github.com/codechain-io/codechain/tosdb/leveldb"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to the node's TOML runtime config",
	}
	chainFlag = &cli.StringFlag{
		Name:  "chain",
		Usage: "path to the chain's JSON consensus scheme, overrides the config file's chainScheme",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory holding the Tendermint vote backup database, overrides the config file's datadir",
	}
)

func main() {
	app := &cli.App{
		Name:  "codechain",
		Usage: "a Tendermint BFT consensus-core node",
		Flags: []cli.Flag{configFlag, chainFlag, dataDirFlag},
		Action: runAction,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadNodeConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("codechain: loading node config: %w", err)
	}
	if v := c.String("chain"); v != "" {
		cfg.ChainScheme = v
	}
	if v := c.String("datadir"); v != "" {
		cfg.DataDir = v
	}
	log.Root().SetHandler(log.LvlFilterHandler(logLevel(cfg.LogLevel), log.StreamHandler(os.Stderr, log.TerminalFormat(true))))

	schemeBytes, err := os.ReadFile(cfg.ChainScheme)
	if err != nil {
		return fmt.Errorf("codechain: reading chain scheme: %w", err)
	}
	params, err := tendermint.ParseParams(schemeBytes)
	if err != nil {
		return fmt.Errorf("codechain: parsing chain scheme: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("codechain: creating data dir: %w", err)
	}
	db, err := leveldb.New(cfg.DataDir + "/tendermint-backup")
	if err != nil {
		return fmt.Errorf("codechain: opening backup database: %w", err)
	}
	defer db.Close()

	var signerInst *signer.Signer
	if cfg.ValidatorKey != "" {
		priv, err := crypto.HexToECDSA(cfg.ValidatorKey)
		if err != nil {
			return fmt.Errorf("codechain: parsing validator key: %w", err)
		}
		signerInst = signer.FromECDSA(priv)
	}

	engine := tendermint.New(params, db, signerInst, noopProposalBuilder{}, nil)
	defer engine.Close()

	if signerInst != nil {
		log.Info("codechain: engine constructed", "role", "validator", "address", signerInst.Address())
	} else {
		log.Info("codechain: engine constructed", "role", "observer")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("codechain: shutting down")
	return nil
}

func logLevel(name string) log.Lvl {
	lvl, err := log.LvlFromString(name)
	if err != nil {
		return log.LvlInfo
	}
	return lvl
}

// noopProposalBuilder stands in for the block executor (spec §1's external
// collaborator): it builds an empty, deterministic block so the engine has
// something to propose before a real executor is wired in.
type noopProposalBuilder struct{}

func (noopProposalBuilder) BuildProposal(parentHash common.Hash) (consensus.BlockHash, []byte, error) {
	body := parentHash[:]
	return consensus.Blake256(body), body, nil
}
