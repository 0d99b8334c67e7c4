// Command statesyncd runs a standalone state-synchronization coordinator,
// wiring the reference executor/request-manager/mempool/network adapters
// together the way eth/backend.go wires the full Ethereum service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/autonity/statesync"
	"github.com/autonity/statesync/executor"
	"github.com/autonity/statesync/log"
	"github.com/autonity/statesync/mempool"
	"github.com/autonity/statesync/netadapter"
	"github.com/autonity/statesync/requestmanager"
)

var (
	chunkLimitFlag = cli.Uint64Flag{
		Name:  "chunklimit",
		Usage: "maximum number of transactions requested or served per chunk",
		Value: statesync.Defaults.ChunkLimit,
	}
	roleFlag = cli.StringFlag{
		Name:  "role",
		Usage: "node role: validator or full_node",
		Value: "full_node",
	}
	cacheFlag = cli.IntFlag{
		Name:  "chunkcache",
		Usage: "byte size of the in-memory chunk-proof cache",
		Value: 64 * 1024 * 1024,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "statesyncd"
	app.Usage = "run a standalone state-synchronization coordinator"
	app.Flags = []cli.Flag{chunkLimitFlag, roleFlag, cacheFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Crit("statesyncd exited with error", "err", err)
	}
}

func run(ctx *cli.Context) error {
	cfg := statesync.Defaults
	cfg.ChunkLimit = ctx.Uint64(chunkLimitFlag.Name)
	if ctx.String(roleFlag.Name) == "validator" {
		cfg.Role = statesync.RoleValidator
	}

	logger := log.New("cmd", "statesyncd")

	ex := executor.New(ctx.Int(cacheFlag.Name))
	net := netadapter.New(logger)
	rm := requestmanager.New(logger, requestmanager.Defaults, nil)
	mp := mempool.NewChannel(256)

	coordinator := statesync.New(cfg, statesync.Waypoint{}, ex, net, rm, mp)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coordinator.Start(runCtx); err != nil {
		return fmt.Errorf("starting coordinator: %w", err)
	}
	logger.Info("state sync coordinator started", "role", cfg.Role)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info("shutting down")
	coordinator.Stop()
	return nil
}
