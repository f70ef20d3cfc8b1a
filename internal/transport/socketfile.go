package transport

import (
	"context"
	"net"

	"zynx/internal/errkind"
)

// SocketFile connects to a filesystem-pathed Unix stream socket fresh for
// every exchange — no sticky state, so the server implementation on the
// other end can be as simple as accept-handle-close.
type SocketFile struct {
	path string
}

func NewSocketFile(path string) *SocketFile {
	return &SocketFile{path: path}
}

func (s *SocketFile) Open(ctx context.Context) (Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", s.path)
	if err != nil {
		return nil, errkind.New(errkind.ConnectFailed, err)
	}
	return conn, nil
}

func (s *SocketFile) Close(conn Connection) error {
	return conn.Close()
}

func (s *SocketFile) Teardown() error {
	return nil
}
