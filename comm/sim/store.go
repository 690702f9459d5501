// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// store persists register images in a bolt database, one bucket per
// simulated connection.
type store struct {
	db     *bbolt.DB
	bucket []byte
}

const (
	keyReg    = 'r'
	keyBridge = 'b'
)

func regKey(addr uint32) []byte {
	k := make([]byte, 5)
	k[0] = keyReg
	binary.BigEndian.PutUint32(k[1:], addr)
	return k
}

func bridgeKey(addr uint8) []byte {
	return []byte{keyBridge, addr}
}

func (st *store) put(key []byte, v uint32) error {
	val := make([]byte, 4)
	binary.BigEndian.PutUint32(val, v)
	err := st.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(st.bucket)
		if b == nil {
			return fmt.Errorf("sim: bucket not found: %s", st.bucket)
		}
		return b.Put(key, val)
	})
	if err != nil {
		return fmt.Errorf("sim: could not persist register: %w", err)
	}
	return nil
}

// Persist loads the register image stored in db for the device connection
// and saves every following write into it.
func (d *Device) Persist(db *bbolt.DB) error {
	bucket := []byte(d.conn.String())
	regs := make(map[uint32]uint32)
	bregs := make(map[uint8]uint32)
	err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) != 4 {
				return fmt.Errorf("invalid value size %d for key %x", len(v), k)
			}
			val := binary.BigEndian.Uint32(v)
			switch {
			case len(k) == 5 && k[0] == keyReg:
				regs[binary.BigEndian.Uint32(k[1:])] = val
			case len(k) == 2 && k[0] == keyBridge:
				bregs[k[1]] = val
			default:
				return fmt.Errorf("invalid key %x", k)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("sim: could not load register image of %s: %w", d.conn, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range regs {
		d.regs[k] = v
	}
	for k, v := range bregs {
		d.bregs[k] = v
	}
	d.store = &store{db: db, bucket: bucket}
	return nil
}
