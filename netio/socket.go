// Package netio is the non-blocking socket adapter: start/finish a
// connect, bounded send/recv, and a closed socket reporting itself
// distinctly from a would-block. It never blocks the calling goroutine —
// every syscall is attempted exactly once per call and a transient EAGAIN
// is reported back to the caller, not retried here.
//
// Linux-only: MSG_NOSIGNAL (avoiding a SIGPIPE on a send to a closed peer)
// has no portable equivalent on every platform the reference
// implementation targets, and this core only needs to run where it's
// actually deployed.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package netio

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/ClickHouse/ch-native-core/cherr"
)

// ConnectResult is what StartConnect learned about the first address it
// tried (or any subsequent one, after earlier candidates failed outright).
type ConnectResult int

const (
	ConnectStarted ConnectResult = iota
	ConnectImmediate
)

// Socket is a single non-blocking TCP socket, owned exclusively by one
// conn.Connection.
type Socket struct {
	fd int
}

// invalidFD mirrors NonBlockingSocket::invalid_socket().
const invalidFD = -1

// IsOpen reports whether the socket currently wraps a live file descriptor.
func (s *Socket) IsOpen() bool { return s != nil && s.fd != invalidFD }

// Close releases the underlying file descriptor, if any. Safe to call on
// an already-closed or nil Socket.
func (s *Socket) Close() {
	if s == nil || s.fd == invalidFD {
		return
	}
	unix.Close(s.fd)
	s.fd = invalidFD
}

// StartConnect resolves host to its candidate addresses (A and AAAA
// records — single-host, multi-address iteration, narrower than the
// excluded multi-host failover) and attempts a non-blocking connect
// against each in turn, the way the source's NetworkAddress/
// endpoints_iterator walks getaddrinfo results. The first candidate that
// either connects immediately or starts a connection in progress wins; a
// candidate that fails outright (socket/bind/connect error other than
// in-progress) is closed and the next is tried. Exhausting every candidate
// returns an IOError.
func StartConnect(host string, port int) (*Socket, ConnectResult, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, 0, cherr.NewIOError("resolve", "connect", err)
	}
	if len(ips) == 0 {
		return nil, 0, cherr.NewIOError("resolve", "connect", errNoAddresses(host))
	}

	var lastErr error
	for _, ip := range ips {
		fd, res, err := tryConnect(ip, port)
		if err != nil {
			lastErr = err
			continue
		}
		return &Socket{fd: fd}, res, nil
	}
	return nil, 0, cherr.NewIOError("connect", "connect", lastErr)
}

type noAddressesErr string

func (e noAddressesErr) Error() string { return "no addresses for " + string(e) }
func errNoAddresses(host string) error { return noAddressesErr(host) }

func tryConnect(ip net.IP, port int) (int, ConnectResult, error) {
	domain := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := ip.To4(); ip4 != nil {
		addr := &unix.SockaddrInet4{Port: port}
		copy(addr.Addr[:], ip4)
		sa = addr
	} else {
		domain = unix.AF_INET6
		addr := &unix.SockaddrInet6{Port: port}
		copy(addr.Addr[:], ip.To16())
		sa = addr
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return 0, 0, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return 0, 0, err
	}

	err = unix.Connect(fd, sa)
	if err == nil {
		return fd, ConnectImmediate, nil
	}
	if err == unix.EINPROGRESS || err == unix.EALREADY || err == unix.EAGAIN {
		return fd, ConnectStarted, nil
	}
	unix.Close(fd)
	return 0, 0, err
}

// PollConnected polls a socket started with StartConnect's ConnectStarted
// result for writability and checks SO_ERROR. Returns true once the
// connect has completed successfully, false if it's still pending; a
// nonzero SO_ERROR is reported as an IOError.
func PollConnected(s *Socket) (bool, error) {
	if !s.IsOpen() {
		return false, nil
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		return false, cherr.NewIOError("poll", "connect", err)
	}
	if n <= 0 {
		return false, nil
	}

	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, cherr.NewIOError("getsockopt", "connect", err)
	}
	if errno != 0 {
		return false, cherr.NewIOError("connect", "connect", unix.Errno(errno))
	}
	return true, nil
}

// SendSome attempts one send of up to len(buf) bytes, returning the
// number of bytes actually sent. wouldBlock distinguishes a transient
// EAGAIN (retry later) from a genuine error. On Linux, MSG_NOSIGNAL keeps
// a send to a peer that has reset the connection from raising SIGPIPE.
func SendSome(s *Socket, buf []byte) (n int, wouldBlock bool, err error) {
	if !s.IsOpen() || len(buf) == 0 {
		return 0, false, nil
	}
	n, err = unix.Send(s.fd, buf, unix.MSG_NOSIGNAL)
	if err == nil {
		return n, false, nil
	}
	if isWouldBlock(err) {
		return 0, true, nil
	}
	return 0, false, cherr.NewIOError("send", "send", err)
}

// RecvSome attempts one recv of up to len(buf) bytes. On an open socket
// with a non-empty buf, a zero-length result with wouldBlock == false
// means the peer closed the connection — the state machine treats that as
// fatal for the current connection, the same way a failed recv would be.
// A nil or closed socket, or an empty buf, also yields (0, false, nil)
// without a syscall.
func RecvSome(s *Socket, buf []byte) (n int, wouldBlock bool, err error) {
	if !s.IsOpen() || len(buf) == 0 {
		return 0, false, nil
	}
	n, err = unix.Read(s.fd, buf)
	if err == nil {
		return n, false, nil
	}
	if isWouldBlock(err) {
		return 0, true, nil
	}
	return 0, false, cherr.NewIOError("recv", "recv", err)
}

func isWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// AddrString renders host:port the way net.JoinHostPort does, used only
// for log lines and error messages.
func AddrString(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
