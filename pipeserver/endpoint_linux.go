package pipeserver

import (
	"context"
	"net"

	"golang.org/x/sys/unix"
)

// On Linux the endpoint is a SOCK_SEQPACKET socket in the abstract namespace:
// the kernel keeps message boundaries and no socket file is left behind.
const network = "unixpacket"

func address(name string) string { return "@wlw/" + name }

func listen(name string, _, _ int) (net.Listener, error) {
	return net.Listen(network, address(name))
}

func dial(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address(name))
}

// readMessage reads one message. The extra byte lets an oversized message
// show up as a size mismatch instead of being silently truncated.
func readMessage(conn net.Conn, buf []byte, size int) (int, error) {
	return conn.Read(buf[:size+1])
}

// peerPID returns the pid of the process on the other end of conn, or 0.
func peerPID(conn net.Conn) int {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return 0
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return 0
	}

	var (
		cred    *unix.Ucred
		credErr error
	)
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil || credErr != nil {
		return 0
	}
	return int(cred.Pid)
}
