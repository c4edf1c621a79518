// Package mono provides a low-level monotonic time source shared by the
// breaker, timeouts, and stall detection in package conn.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import (
	_ "unsafe" // for go:linkname
)

// NanoTime returns a monotonic nanosecond timestamp. It never observes
// wall-clock adjustments (NTP, manual clock set) the way time.Now() can.
//
// https://golang.org/pkg/runtime/?m=all#nanotime
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64
