// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that rate-limit
// sleeps and age bookkeeping can be driven deterministically in tests.
//
// Production code holds a [Clock] (normally [Real]) and calls its
// methods instead of the time package. Tests hand in a [FakeClock]:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go client.SyncOnce(ctx)     // hits a 429 and waits on fake.After
//	fake.WaitForTimers(1)       // the retry wait is now registered
//	fake.Advance(2 * time.Second)
//
// WaitForTimers removes the race between a goroutine registering a
// wait and the test moving time forward.
package clock
