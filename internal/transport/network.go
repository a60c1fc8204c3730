package transport

import (
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/eencloud/goeen/log"
)

// NetworkName is the registry name of the raw-TCP transport. It doubles
// as the printer_mode setting value that selects it.
const NetworkName = "network"

// networkTimeout bounds both the connect and the write so a dead printer
// cannot block the caller indefinitely.
const networkTimeout = 5 * time.Second

func init() {
	Register(NetworkName, NewNetwork)
}

// Network writes the rendered receipt block to a network thermal printer
// over a raw TCP socket (commonly port 9100). There is no handshake and
// no acknowledgement read-back: connect, write, close.
type Network struct {
	logger  *log.Logger
	addr    string
	timeout time.Duration
	dial    func(network, addr string, timeout time.Duration) (net.Conn, error)
}

func NewNetwork(logger *log.Logger, cfg Config) (Transport, error) {
	return &Network{
		logger:  logger,
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout: networkTimeout,
		dial:    net.DialTimeout,
	}, nil
}

func (n *Network) Name() string {
	return NetworkName
}

// Send connects, writes the full block in one logical send and closes.
// The connection is released even when the write fails.
func (n *Network) Send(job *Job) error {
	conn, err := n.dial("tcp", n.addr, n.timeout)
	if err != nil {
		return NewError(NetworkName, dialKind(err), err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetWriteDeadline(time.Now().Add(n.timeout)); err != nil {
		return NewError(NetworkName, KindIOError, err)
	}
	if _, err := conn.Write(job.Rendered); err != nil {
		if isTimeout(err) {
			return NewError(NetworkName, KindTimeout, err)
		}
		return NewError(NetworkName, KindWriteError, err)
	}

	n.logger.Debugf("Receipt sent to %s (%d bytes)", n.addr, len(job.Rendered))
	return nil
}

func dialKind(err error) Kind {
	if isTimeout(err) {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}
	return KindIOError
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
