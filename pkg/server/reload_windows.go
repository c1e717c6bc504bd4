//go:build windows

package server

import "os"

func notifyReload(chan<- os.Signal) bool { return false }

func stopReload(chan<- os.Signal) {}
