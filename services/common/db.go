// Copyright (c) 2017-2018 The qitmeer developers

package common

import (
	"os"
	"path/filepath"
	"time"

	bolt "github.com/coreos/bbolt"

	"github.com/zenoproject/zeno/config"
	"github.com/zenoproject/zeno/log"
)

// blockDbName is the file name of the block database inside the data
// directory.
const blockDbName = "blocks.db"

// blockDbPath returns the path to the block database given a database type.
func blockDbPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, blockDbName)
}

// LoadBlockDB loads (and potentially creates when needed) the block database
// taking into account the selected database backend and returns a handle to
// it.  It also additionally creates the data directory when needed.
func LoadBlockDB(cfg *config.Config) (*bolt.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}

	dbPath := blockDbPath(cfg)
	log.Info("Loading block database", "dbPath", dbPath)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: time.Second * 5,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Block database loaded")
	return db, nil
}
