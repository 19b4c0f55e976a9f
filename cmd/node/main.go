package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	core "github.com/pjas/storagenode/core/node"
	"github.com/pjas/storagenode/lib/logger"
	"github.com/pjas/storagenode/lib/metrics"
)

var log, _ = logger.New("node")

func main() {
	app := &cli.App{
		Name:  "node",
		Usage: "PJAS chunk storage node",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "storage-path",
				Usage: "Directory that holds chunk files and node metadata",
			},
			&cli.IntFlag{
				Name:  "allocated-gb",
				Usage: "Disk allocation for chunk storage in gigabytes",
			},
			&cli.StringFlag{
				Name:  "coordinator-url",
				Usage: "Base URL of the coordinator API",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port for the node protocol",
			},
			&cli.StringFlag{
				Name:  "node-id",
				Usage: "Node identifier (generated when absent)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln("startup", "ERROR", err)
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := core.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "config error")
		return err
	}

	// flags win over the environment
	if v := cliCtx.String("storage-path"); v != "" {
		cfg.Storage.Path = v
	}
	if v := cliCtx.Int("allocated-gb"); v != 0 {
		cfg.Storage.AllocatedGB = v
	}
	if v := cliCtx.String("coordinator-url"); v != "" {
		cfg.Coordinator.URL = v
	}
	if v := cliCtx.Int("port"); v != 0 {
		cfg.Server.Port = v
	}
	if v := cliCtx.String("node-id"); v != "" {
		cfg.NodeID = v
	}

	node, err := core.NewNode(cfg, metrics.Registry)
	if err != nil {
		log.Errorw("startup", "error", "node init failed")
		return err
	}

	api := NewNodeAPI(node)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorw("startup", "error", "net listen failed")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := &http.Server{Handler: api.Handler()}
	listenAddr := l.Addr().String()

	log.Infow("startup", "status", "node http server started", "address", listenAddr, "nodeID", node.ID)
	defer log.Infow("shutdown", "status", "node http server stopped", "address", listenAddr)

	go func() {
		if err := server.Serve(l); err != nil && err != http.ErrServerClosed {
			log.Errorw("serve", "error", err)
		}
	}()

	// registration must never gate chunk serving
	go node.Register(ctx, listenAddr)

	// Start reporting capacity to the coordinator
	go node.StartHealthReport(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	log.Infow("shutdown", "status", "node http server stopping", "address", listenAddr)

	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()

	return server.Shutdown(drainCtx)
}
