//go:build linux

package canbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval bounds each poll(2) so context cancellation is observed even
// when the context carries no deadline.
const pollInterval = 50 * time.Millisecond

// socketCAN implements Bus over a Linux SocketCAN raw socket.
type socketCAN struct {
	fd     int
	iface  string
	closed chan struct{}
}

// DialSocketCAN opens a raw CAN socket bound to the given interface name (e.g., "can0").
func DialSocketCAN(iface string) (Bus, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("canbus: socket: %w", err)
	}

	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("canbus: interface %q: %w", iface, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("canbus: bind %q: %w", iface, err)
	}

	// Non-blocking mode for context-aware operations.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("canbus: set nonblock: %w", err)
	}

	return &socketCAN{fd: fd, iface: iface, closed: make(chan struct{})}, nil
}

func (s *socketCAN) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	return unix.Close(s.fd)
}

func (s *socketCAN) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Send writes one frame using the Linux can_frame binary layout.
func (s *socketCAN) Send(ctx context.Context, frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	for {
		if s.isClosed() {
			return ErrClosed
		}
		n, werr := unix.Write(s.fd, buf)
		if werr == nil {
			if n != len(buf) {
				return errors.New("canbus: short write")
			}
			return nil
		}
		if werr == unix.EAGAIN || werr == unix.ENOBUFS {
			// ENOBUFS: the interface tx queue is full; wait like EAGAIN.
			if err := s.wait(ctx, unix.POLLOUT); err != nil {
				return err
			}
			continue
		}
		return werr
	}
}

// Receive reads one frame, blocking until one arrives or ctx is done.
func (s *socketCAN) Receive(ctx context.Context) (Frame, error) {
	var f Frame
	buf := make([]byte, 16)
	for {
		if s.isClosed() {
			return Frame{}, ErrClosed
		}
		n, rerr := unix.Read(s.fd, buf)
		if rerr == nil {
			if n != len(buf) {
				return Frame{}, errors.New("canbus: short read")
			}
			if err := f.UnmarshalBinary(buf); err != nil {
				return Frame{}, err
			}
			return f, nil
		}
		if rerr == unix.EAGAIN {
			if err := s.wait(ctx, unix.POLLIN); err != nil {
				return Frame{}, err
			}
			continue
		}
		return Frame{}, rerr
	}
}

func (s *socketCAN) wait(ctx context.Context, events int16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		timeout := pollInterval
		if deadline, ok := ctx.Deadline(); ok {
			d := time.Until(deadline)
			if d <= 0 {
				return context.DeadlineExceeded
			}
			if d < timeout {
				timeout = d
			}
		}
		fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
}
