// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations used by roomsync.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel is ready immediately.
	// Callers combine it with ctx.Done() in a select so waits stay
	// cancellable.
	After(d time.Duration) <-chan time.Time

	// Sleep blocks the calling goroutine for at least d.
	Sleep(d time.Duration)
}
