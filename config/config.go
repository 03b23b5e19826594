// Copyright (c) 2017-2018 The qitmeer developers

package config

import (
	"github.com/btcsuite/btcd/btcutil"
)

// Config defines the configuration options for the node.
//
// See loadConfig in the node command for details on the configuration load
// process.
type Config struct {
	HomeDir       string   `short:"A" long:"appdata" description:"Path to application home directory"`
	ShowVersion   bool     `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile    string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string   `long:"logdir" description:"Directory to log output."`
	NoFileLogging bool     `long:"nofilelogging" description:"Disable file logging."`
	RPCListeners  []string `long:"rpclisten" description:"Add an interface/port to listen for RPC connections (default port: 8131 , testnet: 18131)"`
	RPCUser       string   `short:"u" long:"rpcuser" description:"Username for RPC connections"`
	RPCPass       string   `short:"P" long:"rpcpass" default-mask:"-" description:"Password for RPC connections"`
	RPCMaxClients int      `long:"rpcmaxclients" description:"Max number of RPC clients for standard connections"`
	DisableRPC    bool     `long:"norpc" description:"Disable built-in RPC server -- NOTE: The RPC server is disabled by default if no rpcuser/rpcpass is specified"`
	Modules       []string `long:"modules" description:"Modules is a list of API modules to expose via the HTTP RPC interface. If the module list is empty, all RPC API endpoints designated public will be exposed."`
	TestNet       bool     `long:"testnet" description:"Use the test network"`
	PrivNet       bool     `long:"privnet" description:"Use the private network"`
	DebugLevel    string   `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical} "`

	// MemPool Config
	MaxOrphanTxs int   `long:"maxorphantx" description:"Max number of orphan transactions to keep in memory"`
	MinTxFee     int64 `long:"mintxfee" description:"The minimum transaction fee in base units/kB."`

	// Miner
	MiningAddrs  []string `long:"miningaddr" description:"Add the specified payment address to the list of addresses to use for generated blocks -- At least one address is required for getblocktemplate to hand out coinbase transactions"`
	BlockMinSize uint32   `long:"blockminsize" description:"Mininum block size in bytes to be used when creating a block"`
	BlockMaxSize uint32   `long:"blockmaxsize" description:"Maximum block size in bytes to be used when creating a block"`
	miningAddrs  []btcutil.Address
}

func (c *Config) GetMiningAddrs() []btcutil.Address {
	return c.miningAddrs
}

func (c *Config) SetMiningAddrs(addr btcutil.Address) {
	c.miningAddrs = append(c.miningAddrs, addr)
}
