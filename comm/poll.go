// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import "time"

// Poll calls ready every interval until it reports true, returns an error,
// or timeout elapses. In the latter case Poll returns a *TimeoutError
// naming what.
//
// ready is always called at least once.
func Poll(timeout, interval time.Duration, what string, ready func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := ready()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		left := time.Until(deadline)
		if left <= 0 {
			return &TimeoutError{What: what, After: timeout}
		}
		time.Sleep(min(interval, left))
	}
}
