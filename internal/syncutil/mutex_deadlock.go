//go:build deadlock

// Package syncutil provides the mutex types used by links, transports and the
// detection cache. This file is compiled when building with -tags=deadlock and
// swaps in github.com/sasha-s/go-deadlock so lock-order bugs between the read
// and write halves of a link are reported instead of hanging.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex for deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}
