// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command caen-hvmon monitors the V6533/V6534 power supplies of a setup.
//
// caen-hvmon periodically reads all the channels of the high voltage
// boards described in the setup file, serves the last readings over HTTP,
// sends a mail when a channel trips and stores the readings in the
// conditions database when one is configured.
//
// Example:
//
//	$> caen-hvmon -f setup.yaml -addr :8080
//	$> curl localhost:8080/api/channels/hv-1/3
package main // import "github.com/go-lpc/caen/cmd/caen-hvmon"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-lpc/caen/conddb"
	"github.com/go-lpc/caen/hv"
	"github.com/go-lpc/caen/hvmon"
	"github.com/go-lpc/caen/internal/setup"

	_ "github.com/go-lpc/caen/comm/sim"
)

func main() {
	var (
		fname = flag.String("f", "setup.yaml", "path to setup file")
		addr  = flag.String("addr", "", "HTTP API [address]:port (default: from setup file)")
		freq  = flag.Duration("freq", 0, "polling period (default: from setup file)")
	)

	log.SetPrefix("caen-hvmon: ")
	log.SetFlags(0)

	flag.Parse()

	st, err := setup.Load(*fname)
	if err != nil {
		log.Fatalf("could not load setup: %+v", err)
	}
	if *addr != "" {
		st.Monitor.Addr = *addr
	}
	if *freq > 0 {
		st.Monitor.Interval = *freq
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	msg := log.New(os.Stdout, "caen-hvmon: ", 0)
	err = run(ctx, st, msg)
	if err != nil {
		log.Fatalf("could not run caen-hvmon: %+v", err)
	}
}

func run(ctx context.Context, st *setup.Setup, msg *log.Logger) error {
	opts := []hvmon.Option{hvmon.WithInterval(st.Monitor.Interval)}

	if st.Monitor.DB != "" {
		db, err := conddb.Open(st.Monitor.DB)
		if err != nil {
			return fmt.Errorf("could not open conditions database: %w", err)
		}
		defer db.Close()
		opts = append(opts, hvmon.WithSink(db))
	}

	if st.Monitor.Mail != nil {
		opts = append(opts, hvmon.WithAlerter(hvmon.NewMailer(*st.Monitor.Mail)))
	}

	mon := hvmon.New(msg, opts...)
	for _, brd := range st.Boards {
		if brd.Model != hv.V6533.String() && brd.Model != hv.V6534.String() {
			continue
		}
		dev, err := setup.Open(brd)
		if err != nil {
			return fmt.Errorf("could not open board %q: %w", brd.Name, err)
		}
		defer dev.Close()

		err = mon.Add(brd.Name, dev.(*hv.Board))
		if err != nil {
			return err
		}
		msg.Printf("monitoring board %q (%s)", brd.Name, brd.Model)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return mon.Run(ctx)
	})

	if st.Monitor.Addr != "" {
		srv := &http.Server{
			Addr:              st.Monitor.Addr,
			Handler:           mon.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		grp.Go(func() error {
			msg.Printf("serving HTTP API on %q", srv.Addr)
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		grp.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	return grp.Wait()
}
