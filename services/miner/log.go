// Copyright (c) 2017-2018 The qitmeer developers

package miner

import (
	l "github.com/zenoproject/zeno/log"
)

var log l.Logger

func init() {
	UseLogger(l.New(l.Ctx{"module": "miner"}))
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger l.Logger) {
	log = logger
}
