// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-lpc/caen"
	"github.com/go-lpc/caen/comm"
	"github.com/go-lpc/caen/vme"
	"go.etcd.io/bbolt"
)

// EnvDB names the environment variable holding the path of the bolt
// database backing devices opened through the "sim" drivers.
const EnvDB = "CAEN_SIM_DB"

func init() {
	comm.Register("sim", commDriver{})
	vme.Register("sim", vmeDriver{})
}

var shared struct {
	once sync.Once
	db   *bbolt.DB
	err  error
}

func openDB() (*bbolt.DB, error) {
	path := os.Getenv(EnvDB)
	if path == "" {
		return nil, nil
	}
	shared.once.Do(func() {
		shared.db, shared.err = bbolt.Open(path, 0600, nil)
	})
	return shared.db, shared.err
}

func open(conn caen.Connection) (*Device, error) {
	dev := New(conn)
	db, err := openDB()
	if err != nil {
		return nil, fmt.Errorf("sim: could not open register database: %w", err)
	}
	if db != nil {
		err = dev.Persist(db)
		if err != nil {
			return nil, err
		}
	}
	return dev, nil
}

type commDriver struct{}

func (commDriver) Open(conn caen.Connection) (comm.Transport, error) {
	dev, err := open(conn)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

type vmeDriver struct{}

func (vmeDriver) Open(bt vme.BoardType, conn caen.Connection) (vme.Controller, error) {
	dev, err := open(conn)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
