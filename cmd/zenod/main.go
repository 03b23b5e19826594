// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2013-2016 The btcsuite developers

package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/zenoproject/zeno/config"
	"github.com/zenoproject/zeno/log"
	"github.com/zenoproject/zeno/node"
	"github.com/zenoproject/zeno/params"
	"github.com/zenoproject/zeno/services/common"
	"github.com/zenoproject/zeno/version"
)

func main() {
	// Initialize the goroutine count,  Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Block and transaction processing can cause bursty allocations.  This
	// limits the garbage collector from excessively overallocating during
	// bursts.  This value was arrived at with the help of profiling live
	// usage.
	debug.SetGCPercent(20)

	// Work around defer not working after os.Exit()
	if err := zenodMain(nil); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

// zenodMain is the real main function for zenod.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is
// called.  The optional nodeChan parameter is mainly used by the service code
// to be notified with the node once it is setup so it can gracefully stop it
// when requested from the service control manager.
func zenodMain(nodeChan chan<- *node.Node) error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, _, err := common.LoadConfig()
	if err != nil {
		return err
	}

	defer func() {
		if log.LogWrite() != nil {
			log.LogWrite().Close()
		}
	}()

	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the RPC server.
	interrupt := interruptListener()
	defer log.Info("Shutdown complete")

	// Show version and home dir at startup.
	log.Info("System info", "Zeno Version", version.String(), "Go version",
		runtime.Version())
	log.Info("System info", "Home dir", cfg.HomeDir)

	if cfg.NoFileLogging {
		log.Info("File logging disabled")
	}

	// Load the block database.
	db, err := common.LoadBlockDB(cfg)
	if err != nil {
		log.Error("load block database", "error", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		log.Info("Gracefully shutting down the database...")
		db.Close()
	}()

	// Return now if an interrupt signal was triggered.
	if interruptRequested(interrupt) {
		return nil
	}

	// Create node and start it.
	n, err := node.NewNode(cfg, db, params.ActiveNetParams.Params,
		shutdownRequestChannel)
	if err != nil {
		log.Error("Unable to start server", "error", err)
		return err
	}
	defer func() {
		log.Info("Gracefully shutting down the server...")
		err := n.Stop()
		if err != nil {
			log.Warn("node stop error", "error", err)
		}
		n.WaitForShutdown()
	}()
	err = n.Start()
	if err != nil {
		log.Error("Unable to start server", "error", err)
		return err
	}
	showLogo(cfg)
	//
	if nodeChan != nil {
		nodeChan <- n
	}

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems such as the RPC
	// server.
	<-interrupt
	return nil
}

func showLogo(cfg *config.Config) {
	logo := `

  ________ ____   ____   ____
  \___   // __ \ /    \ /  _ \    Zeno %s
   /    /\  ___/|   |  (  <_> )   PID : %d
  /_____ \\___  >___|  /\____/    Network : %s
        \/    \/     \/

`
	fmt.Printf(logo, version.String(), os.Getpid(), params.ActiveNetParams.Name)
}
