// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hvmon monitors V6533/V6534 high voltage power supplies.
//
// A Monitor periodically reads all the channels of its boards, keeps the
// last snapshot of each board, raises an alert when a channel trips or
// goes over-current and optionally stores the readings in a conditions
// database.
package hvmon // import "github.com/go-lpc/caen/hvmon"

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-lpc/caen/hv"
)

// DefaultInterval is the default polling period.
const DefaultInterval = 10 * time.Second

// Board is a power supply read by a Monitor.
type Board interface {
	ReadAll() ([]hv.Reading, error)
}

// Sink stores the readings of a board.
type Sink interface {
	InsertHVReadings(ctx context.Context, board string, t time.Time, rs []hv.Reading) error
}

// Alerter sends alerts.
type Alerter interface {
	Alert(subject, body string) error
}

// Snapshot is the last reading of all the channels of a board.
type Snapshot struct {
	Board    string       `json:"board"`
	Time     time.Time    `json:"time"`
	Readings []hv.Reading `json:"channels"`
}

// alarms are the status flags triggering an alert.
const alarms = hv.StatusTrip | hv.StatusOverCurrent

type chanID struct {
	board string
	ch    int
}

// Monitor polls a set of power supplies.
type Monitor struct {
	msg  *log.Logger
	freq time.Duration
	now  func() time.Time

	sink  Sink
	alert Alerter

	names  []string
	boards map[string]Board

	mu    sync.RWMutex
	snaps map[string]Snapshot
	flags map[chanID]hv.ChannelStatus
}

// Option configures a Monitor.
type Option func(m *Monitor)

// WithInterval sets the polling period.
// Non-positive periods are ignored.
func WithInterval(freq time.Duration) Option {
	return func(m *Monitor) {
		if freq > 0 {
			m.freq = freq
		}
	}
}

// WithSink stores every snapshot into sink.
func WithSink(sink Sink) Option {
	return func(m *Monitor) {
		m.sink = sink
	}
}

// WithAlerter sends the channel alarms through alert.
func WithAlerter(alert Alerter) Option {
	return func(m *Monitor) {
		m.alert = alert
	}
}

// New returns a new monitor logging to msg.
func New(msg *log.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		msg:    msg,
		freq:   DefaultInterval,
		now:    time.Now,
		boards: make(map[string]Board),
		snaps:  make(map[string]Snapshot),
		flags:  make(map[chanID]hv.ChannelStatus),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add adds a board to the monitor. Add must be called before Run.
func (m *Monitor) Add(name string, brd Board) error {
	if _, dup := m.boards[name]; dup {
		return fmt.Errorf("hvmon: duplicate board %q", name)
	}
	m.boards[name] = brd
	m.names = append(m.names, name)
	sort.Strings(m.names)
	return nil
}

// Boards returns the sorted names of the monitored boards.
func (m *Monitor) Boards() []string {
	return append([]string(nil), m.names...)
}

// Run polls the boards until ctx is done.
// Polling errors are logged and do not stop the monitor.
func (m *Monitor) Run(ctx context.Context) error {
	if len(m.boards) == 0 {
		return fmt.Errorf("hvmon: no board to monitor")
	}

	tick := time.NewTicker(m.freq)
	defer tick.Stop()

	for {
		err := m.Poll(ctx)
		if err != nil {
			m.msg.Printf("%+v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

// Poll reads all the boards once, concurrently.
func (m *Monitor) Poll(ctx context.Context) error {
	var grp errgroup.Group
	for _, name := range m.names {
		name := name
		brd := m.boards[name]
		grp.Go(func() error {
			return m.poll(ctx, name, brd)
		})
	}
	return grp.Wait()
}

func (m *Monitor) poll(ctx context.Context, name string, brd Board) error {
	rs, err := brd.ReadAll()
	if err != nil {
		return fmt.Errorf("hvmon: could not read board %q: %w", name, err)
	}

	snap := Snapshot{Board: name, Time: m.now().UTC(), Readings: rs}
	m.mu.Lock()
	m.snaps[name] = snap
	m.mu.Unlock()

	m.check(snap)

	if m.sink == nil {
		return nil
	}
	err = m.sink.InsertHVReadings(ctx, name, snap.Time, rs)
	if err != nil {
		return fmt.Errorf("hvmon: could not store readings of board %q: %w", name, err)
	}
	return nil
}

// check raises an alert for the channels whose alarm flags were raised
// since the previous reading.
func (m *Monitor) check(snap Snapshot) {
	for _, r := range snap.Readings {
		id := chanID{snap.Board, r.Channel}
		cur := r.Status & alarms

		m.mu.Lock()
		old := m.flags[id]
		m.flags[id] = cur
		m.mu.Unlock()

		if raised := cur &^ old; raised != 0 {
			m.raise(snap, r, raised)
		}
	}
}

func (m *Monitor) raise(snap Snapshot, r hv.Reading, flags hv.ChannelStatus) {
	subject := fmt.Sprintf("[caen-hvmon] board %q, channel %d: %v", snap.Board, r.Channel, flags.Names())
	m.msg.Printf("alert: %s", subject)
	if m.alert == nil {
		return
	}

	body := fmt.Sprintf(
		"board:   %s\nchannel: %d\ntime:    %v\nstatus:  %v\nvset:    %g V\nvmon:    %g V\niset:    %g A\nimon:    %g A\n",
		snap.Board, r.Channel, snap.Time.Format(time.RFC3339),
		r.Status.Names(), r.VSet, r.Voltage, r.ISet, r.Current,
	)
	err := m.alert.Alert(subject, body)
	if err != nil {
		m.msg.Printf("could not send alert: %+v", err)
	}
}

// Snapshot returns the last snapshot of the named board.
func (m *Monitor) Snapshot(name string) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[name]
	return snap, ok
}

// Snapshots returns the last snapshots of all the boards read so far,
// sorted by board name.
func (m *Monitor) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.snaps))
	for _, name := range m.names {
		snap, ok := m.snaps[name]
		if !ok {
			continue
		}
		out = append(out, snap)
	}
	return out
}
