package transport

import (
	"context"
	"errors"
	"net"

	"zynx/internal/errkind"
	"zynx/internal/transport/procnet"
)

// UnixAbstract resolves the newest socket matching prefix via procnet and
// connects into Linux's abstract Unix-socket namespace. Resolution runs
// on every exchange, never cached, because the server may rotate sockets
// between forks (§4.4) — and there is deliberately no fallback to an
// older socket on connect failure (§4.3, §9): operators must know exactly
// which server instance answered.
type UnixAbstract struct {
	prefix string
}

func NewUnixAbstract(prefix string) *UnixAbstract {
	return &UnixAbstract{prefix: prefix}
}

func (u *UnixAbstract) Open(ctx context.Context) (Connection, error) {
	name, err := procnet.Resolve(u.prefix)
	if err != nil {
		if errors.Is(err, procnet.ErrNoMatch) {
			return nil, errkind.New(errkind.NoMatchingSocket, err)
		}
		return nil, errkind.New(errkind.ConnectFailed, err)
	}

	var d net.Dialer
	// Go's net package treats a UnixAddr.Name starting with "@" as the
	// abstract namespace, translating it to a leading NUL on the wire.
	conn, err := d.DialContext(ctx, "unix", "@"+name)
	if err != nil {
		return nil, errkind.New(errkind.ConnectFailed, err)
	}
	return conn, nil
}

func (u *UnixAbstract) Close(conn Connection) error {
	return conn.Close()
}

func (u *UnixAbstract) Teardown() error {
	return nil
}
