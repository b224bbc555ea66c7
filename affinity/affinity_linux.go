//go:build linux && cgo

package affinity

/*
#define _GNU_SOURCE
#include <sched.h>
#include <pthread.h>
#include <errno.h>

static int ct_setaffinity(int cpu) {
	cpu_set_t set;
	CPU_ZERO(&set);
	CPU_SET(cpu, &set);
	return pthread_setaffinity_np(pthread_self(), sizeof(set), &set);
}

static int ct_clearaffinity(int ncpu) {
	cpu_set_t set;
	CPU_ZERO(&set);
	for (int i = 0; i < ncpu; i++) {
		CPU_SET(i, &set);
	}
	return pthread_setaffinity_np(pthread_self(), sizeof(set), &set);
}
*/
import "C"

import (
	"fmt"
	"runtime"
)

func platformBind(cpuID int) error {
	runtime.LockOSThread()
	if ret := C.ct_setaffinity(C.int(cpuID)); ret != 0 {
		return fmt.Errorf("affinity: pthread_setaffinity_np failed, code %d", ret)
	}
	return nil
}

func platformUnbind() error {
	if ret := C.ct_clearaffinity(C.int(runtime.NumCPU())); ret != 0 {
		return fmt.Errorf("affinity: pthread_setaffinity_np(unbind) failed, code %d", ret)
	}
	return nil
}
