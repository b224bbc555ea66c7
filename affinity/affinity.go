// Package affinity is the concrete "external affinity service" spec §5
// refers to: when an EventGroup's binding flag is set, each loop's worker
// goroutine asks this package to pin its OS thread to a CPU core during
// thread start. Binding is advisory per spec — failure is logged, never
// fatal, and never observable to a handler.
//
// Grounded on the teacher's internal/concurrency affinity/pin family
// (affinity_linux.go, affinity_windows.go, pin_linux.go, pin_windows.go),
// consolidated into one function per build-tag combination. The teacher's
// tree declares platformPinCurrentThread (and friends) twice under the
// identical "linux && !cgo" build constraint, in both affinity_nocgo.go and
// affinity_linux_pure.go — a duplicate-symbol defect that would fail to
// compile; see DESIGN.md. This package keeps exactly one implementation
// per platform/cgo combination.
package affinity

// Bind pins the calling OS thread to cpuID. Where a platform
// implementation exists, Bind first locks the calling goroutine to its OS
// thread (runtime.LockOSThread), since affinity is a thread, not a
// goroutine, property. A negative cpuID is a request to not bind at all
// and always succeeds as a no-op.
func Bind(cpuID int) error {
	if cpuID < 0 {
		return nil
	}
	return platformBind(cpuID)
}

// Unbind clears any affinity set by Bind, returning the thread to running
// on any CPU.
func Unbind() error {
	return platformUnbind()
}
