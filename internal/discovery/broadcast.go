package discovery

import (
	"net"
	"syscall"
)

// enableBroadcast sets SO_BROADCAST on conn's underlying socket, needed to
// send to the limited broadcast address 255.255.255.255. There is no
// portable, non-syscall way to set this socket option from Go's standard
// library.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sockErr = setSocketBroadcastOption(fd)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}

func setSocketBroadcastOption(fd uintptr) error {
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
}
