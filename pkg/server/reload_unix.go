//go:build !windows

package server

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyReload routes SIGHUP to ch.
func notifyReload(ch chan<- os.Signal) bool {
	signal.Notify(ch, syscall.SIGHUP)
	return true
}

func stopReload(ch chan<- os.Signal) {
	signal.Stop(ch)
}
