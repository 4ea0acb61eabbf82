package services

import "sync/atomic"

// Readiness flips once startup sequencing has finished.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) MarkReady() { r.ready.Store(true) }

func (r *Readiness) Ready() bool { return r.ready.Load() }
