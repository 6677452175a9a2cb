//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package main

import "net"

func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
