//go:build windows

package pipeserver

import (
	"context"
	"net"

	winio "github.com/Microsoft/go-winio"
)

func address(name string) string { return `\\.\pipe\` + name }

func listen(name string, inSize, outSize int) (net.Listener, error) {
	return winio.ListenPipe(address(name), &winio.PipeConfig{
		MessageMode:      true,
		InputBufferSize:  int32(inSize),
		OutputBufferSize: int32(outSize),
	})
}

func dial(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, address(name))
}

// readMessage reads one message. An oversized message either fills the extra
// byte or fails the read with ERROR_MORE_DATA.
func readMessage(conn net.Conn, buf []byte, size int) (int, error) {
	return conn.Read(buf[:size+1])
}

func peerPID(net.Conn) int { return 0 }
