// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hvmon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Handler returns the HTTP API of the monitor:
//
//	GET /api/boards                 names of the monitored boards
//	GET /api/channels               last snapshot of every board
//	GET /api/channels/{board}       last snapshot of a board
//	GET /api/channels/{board}/{ch}  last reading of a channel
func (m *Monitor) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/boards", m.handleBoards()).Methods("GET")
	api.HandleFunc("/channels", m.handleChannels()).Methods("GET")
	api.HandleFunc("/channels/{board}", m.handleBoard()).Methods("GET")
	api.HandleFunc("/channels/{board}/{ch:[0-9]+}", m.handleChannel()).Methods("GET")
	return router
}

func (m *Monitor) handleBoards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply(w, m.Boards())
	}
}

func (m *Monitor) handleChannels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply(w, m.Snapshots())
	}
}

func (m *Monitor) handleBoard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["board"]
		snap, ok := m.Snapshot(name)
		if !ok {
			http.Error(w, fmt.Sprintf("board %q not found", name), http.StatusNotFound)
			return
		}
		reply(w, snap)
	}
}

func (m *Monitor) handleChannel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		snap, ok := m.Snapshot(vars["board"])
		if !ok {
			http.Error(w, fmt.Sprintf("board %q not found", vars["board"]), http.StatusNotFound)
			return
		}
		ch, err := strconv.Atoi(vars["ch"])
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rd := range snap.Readings {
			if rd.Channel == ch {
				reply(w, rd)
				return
			}
		}
		http.Error(w, fmt.Sprintf("channel %d not found", ch), http.StatusNotFound)
	}
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
