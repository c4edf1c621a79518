// Package conn is the connection state machine: it drives one TCP
// connection through connect, handshake, and a FIFO of pipelined INSERT
// requests, applying backpressure, timeouts, and a cooldown breaker.
// Every public method except EnqueueInsert is meant to be called from a
// single driving goroutine; EnqueueInsert may be called from another
// goroutine only if the embedder serializes it against Poll itself (the
// core takes no locks).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package conn

import (
	"time"

	"github.com/ClickHouse/ch-native-core/block"
	"github.com/ClickHouse/ch-native-core/cmn/mono"
	"github.com/ClickHouse/ch-native-core/cmn/nlog"
	"github.com/ClickHouse/ch-native-core/encode"
	"github.com/ClickHouse/ch-native-core/netio"
	"github.com/ClickHouse/ch-native-core/parse"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/ring"
)

// maxIOChunkBytes caps a single send/recv attempt per poll iteration, so
// one fat block can't starve the parser or make one connection hog a
// caller's poll loop.
const maxIOChunkBytes = 64 * 1024

// nowFn is the connection's monotonic clock source for bookkeeping done
// outside Poll (StartConnect's connect_started_at, Disabled's deadline
// check) and for Poll's budget deadline. Poll itself takes its notion of
// "now" as an explicit argument, the way the caller's own event loop would
// supply it; that value must come from the same clock (mono.NanoTime).
// Tests override this var to get a fully deterministic clock.
var nowFn = mono.NanoTime

// Connection owns a single non-blocking socket, its RX ring, the parser
// states driven against that ring, and a FIFO of pipelined INSERT
// requests. See state.go for the primary State and requestPhase enums.
type Connection struct {
	opts Options

	sock *netio.Socket
	rx   *ring.Ring

	dispatcher parse.Dispatcher
	hello      parse.HelloParseState
	serverInfo parse.ServerInfo

	helloBuf    []byte
	addendumBuf []byte

	queue         []*request
	inflightBytes int64

	state   State
	txPhase requestPhase
	txOffset int

	disabledUntil    int64
	connectStartedAt int64
	lastProgressAt   int64
}

// NewConnection validates opts (filling in defaults for zero fields) and
// allocates the RX ring. It never touches the network.
func NewConnection(opts Options) *Connection {
	opts = opts.withDefaults()
	c := &Connection{
		opts:  opts,
		rx:    ring.New(opts.InboxRingBytes),
		state: StateDisconnected,
	}
	c.dispatcher.ResetForNextPacket()
	c.hello.Reset()
	return c
}

// Connected reports whether the connection is past the handshake and
// ready to serve (or actively serving) a request.
func (c *Connection) Connected() bool { return c.state.connected() }

// Disabled reports whether the cooldown breaker is still tripped.
func (c *Connection) Disabled() bool {
	return c.disabledUntil != 0 && nowFn() < c.disabledUntil
}

// State returns the connection's current primary state, for diagnostics
// and tests.
func (c *Connection) State() State { return c.state }

// InflightBytes returns the sum of total_bytes across all queued
// requests.
func (c *Connection) InflightBytes() int64 { return c.inflightBytes }

// InflightRequests returns the number of requests currently queued
// (including the one, if any, in flight).
func (c *Connection) InflightRequests() int { return len(c.queue) }

// StartConnect clears a possibly-expired breaker, closes any prior
// socket, re-encodes the Hello buffer, and begins a non-blocking
// connect. It silently no-ops if the breaker is still tripped.
func (c *Connection) StartConnect() error {
	if c.Disabled() {
		return nil
	}
	c.disabledUntil = 0

	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	c.rx.Clear()
	c.dispatcher.ResetForNextPacket()
	c.hello.Reset()
	c.serverInfo = parse.ServerInfo{}
	c.txOffset = 0

	c.helloBuf = encode.Hello(encode.HelloOptions{
		Database: c.opts.Database,
		User:     c.opts.User,
		Password: c.opts.Password,
	})

	now := nowFn()
	sock, res, err := netio.StartConnect(c.opts.Host, c.opts.Port)
	if err != nil {
		nlog.Errorf("connect to %s failed: %v", netio.AddrString(c.opts.Host, c.opts.Port), err)
		c.disabledUntil = now + c.opts.Cooldown.Nanoseconds()
		return err
	}

	c.sock = sock
	c.connectStartedAt = now
	c.lastProgressAt = now
	if res == netio.ConnectImmediate {
		c.state = StateHandshakingSendHello
	} else {
		c.state = StateConnecting
	}
	return nil
}

// Close releases the socket, clears the ring and every parser state, and
// returns to Disconnected. It does not drop queued requests — a later
// StartConnect resumes the same FIFO once the handshake completes again.
func (c *Connection) Close() {
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	c.rx.Clear()
	c.dispatcher.ResetForNextPacket()
	c.hello.Reset()
	c.serverInfo = parse.ServerInfo{}
	c.txOffset = 0
	c.txPhase = 0
	c.state = StateDisconnected
	c.opts.Metrics.SetConnected(false)
}

// EnqueueInsert encodes table/b/queryID into the four per-request byte
// buffers and pushes them onto the FIFO, starting transmission
// immediately if the connection is otherwise idle. The INSERT text is
// "INSERT INTO <table> ( col1, col2, ... ) VALUES" with column
// identifiers backtick-quoted; the table name is emitted as-is.
func (c *Connection) EnqueueInsert(table string, b block.Block, queryID string) EnqueueResult {
	if c.Disabled() {
		return Disabled
	}
	switch c.state {
	case StateDisconnected, StateConnecting,
		StateHandshakingSendHello, StateHandshakingRecvHello, StateHandshakingSendAddendum:
		return NotConnected
	}
	if len(c.queue) >= c.opts.MaxInflightRequests {
		return Dropped
	}

	req, err := buildRequest(table, b, queryID, c.serverInfo.Revision)
	if err != nil {
		nlog.Errorf("encode insert into %s: %v", table, err)
		return Dropped
	}
	if c.inflightBytes+req.totalBytes > c.opts.MaxInflightBytes {
		return Dropped
	}

	wasReady := c.state == StateReady
	c.queue = append(c.queue, req)
	c.inflightBytes += req.totalBytes
	if wasReady {
		c.beginRequest(nowFn())
	}
	return Queued
}

// Poll runs alternating I/O attempts and state transitions for up to
// budget of real time (measured with nowFn), using now for every connect/stall
// timeout and breaker comparison. It never blocks: a budget of zero (or
// negative) makes no syscalls and returns Progressed == false.
func (c *Connection) Poll(now int64, budget time.Duration) PollResult {
	var result PollResult
	if budget <= 0 {
		result.Connected = c.Connected()
		return result
	}

	deadline := nowFn() + budget.Nanoseconds()
	for nowFn() < deadline {
		if !c.stepOnce(now, &result) {
			break
		}
		result.Progressed = true
	}

	result.Connected = c.Connected()
	c.opts.Metrics.SetConnected(result.Connected)
	return result
}

func (c *Connection) stepOnce(now int64, result *PollResult) bool {
	if c.state != StateDisconnected && c.state != StateConnecting && c.state != StateReady {
		if now-c.lastProgressAt > c.opts.StallTimeout.Nanoseconds() {
			c.tripBreaker(now, "stall timeout", result)
			return true
		}
	}

	switch c.state {
	case StateDisconnected:
		return false
	case StateConnecting:
		return c.stepConnecting(now, result)
	case StateHandshakingSendHello:
		return c.advanceBuffer(now, result, c.helloBuf, func(int64) {
			c.state = StateHandshakingRecvHello
		})
	case StateHandshakingRecvHello:
		return c.stepHandshakingRecvHello(now, result)
	case StateHandshakingSendAddendum:
		return c.advanceBuffer(now, result, c.addendumBuf, c.transitionToReady)
	case StateReady:
		return false
	default:
		return c.stepRequestActive(now, result)
	}
}

func (c *Connection) stepConnecting(now int64, result *PollResult) bool {
	if now-c.connectStartedAt > c.opts.ConnectTimeout.Nanoseconds() {
		c.tripBreaker(now, "connect timeout", result)
		return true
	}
	ok, err := netio.PollConnected(c.sock)
	if err != nil {
		c.tripBreaker(now, "connect failed: "+err.Error(), result)
		return true
	}
	if !ok {
		return false
	}
	c.lastProgressAt = now
	c.txOffset = 0
	c.state = StateHandshakingSendHello
	return true
}

func (c *Connection) stepHandshakingRecvHello(now int64, result *PollResult) bool {
	recvProgressed := c.tryRecv(now, result)
	if c.state == StateDisconnected {
		return true
	}

	res, msg, err := c.hello.Advance(c.rx, &c.serverInfo)
	if err != nil {
		c.tripBreaker(now, "handshake protocol error: "+err.Error(), result)
		return true
	}
	switch res {
	case parse.HelloNeedMoreData:
		return recvProgressed
	case parse.HelloSuccess:
		c.lastProgressAt = now
		if c.serverInfo.Revision >= protocol.MinRevisionWithAddendum {
			c.addendumBuf = encode.Addendum()
			c.txOffset = 0
			c.state = StateHandshakingSendAddendum
		} else {
			c.transitionToReady(now)
		}
		return true
	case parse.HelloException:
		c.lastProgressAt = now
		c.tripBreaker(now, "handshake exception: "+msg, result)
		return true
	}
	return recvProgressed
}

func (c *Connection) stepRequestActive(now int64, result *PollResult) bool {
	req := c.queue[0]
	switch c.txPhase {
	case phaseSendingQuery:
		return c.advanceBuffer(now, result, req.queryBytes, func(int64) {
			c.txPhase = phaseSendingQueryTerminator
		})
	case phaseSendingQueryTerminator:
		return c.advanceBuffer(now, result, req.terminatorBytes, func(int64) {
			c.txPhase = phaseWaitingForData
			c.state = StateRequestWaitForData
		})
	case phaseWaitingForData:
		return c.stepWaitForData(now, result)
	case phaseSendingBlock:
		return c.advanceBuffer(now, result, req.dataBytes, func(int64) {
			c.txPhase = phaseSendingEnd
			c.state = StateRequestSendEnd
		})
	case phaseSendingEnd:
		return c.advanceBuffer(now, result, req.endBytes, func(int64) {
			c.txPhase = phaseWaitingForEOS
			c.state = StateRequestWaitForEOS
		})
	case phaseWaitingForEOS:
		return c.stepWaitForEOS(now, result)
	}
	return false
}

func (c *Connection) stepWaitForData(now int64, result *PollResult) bool {
	recvProgressed := c.tryRecv(now, result)
	if c.state == StateDisconnected {
		return true
	}

	var ev parse.Event
	ok, err := c.dispatcher.Advance(c.rx, c.serverInfo.Revision, &ev)
	if err != nil {
		c.tripBreaker(now, "packet protocol error: "+err.Error(), result)
		return true
	}
	if !ok {
		return recvProgressed
	}
	c.lastProgressAt = now

	switch ev.Kind {
	case parse.EventData:
		c.txPhase = phaseSendingBlock
		c.state = StateRequestSendBlock
		c.txOffset = 0
	case parse.EventException:
		// The server rejected the query before any block was sent; every
		// queued request depended on a schema that never arrived.
		c.tripBreaker(now, "query exception: "+ev.ExceptionMessage, result)
	}
	return true
}

func (c *Connection) stepWaitForEOS(now int64, result *PollResult) bool {
	recvProgressed := c.tryRecv(now, result)
	if c.state == StateDisconnected {
		return true
	}

	var ev parse.Event
	ok, err := c.dispatcher.Advance(c.rx, c.serverInfo.Revision, &ev)
	if err != nil {
		c.tripBreaker(now, "packet protocol error: "+err.Error(), result)
		return true
	}
	if !ok {
		return recvProgressed
	}
	c.lastProgressAt = now

	switch ev.Kind {
	case parse.EventEndOfStream:
		c.finishRequest(now, true, "", result)
	case parse.EventException:
		c.finishRequest(now, false, ev.ExceptionMessage, result)
	}
	return true
}

// advanceBuffer streams buf from c.txOffset, one bounded chunk per call.
// onDone runs once buf has been fully sent, with c.txOffset already
// reset to zero.
func (c *Connection) advanceBuffer(now int64, result *PollResult, buf []byte, onDone func(now int64)) bool {
	rem := buf[c.txOffset:]
	if len(rem) > maxIOChunkBytes {
		rem = rem[:maxIOChunkBytes]
	}
	n, wouldBlock, err := netio.SendSome(c.sock, rem)
	if err != nil {
		c.tripBreaker(now, "send failed: "+err.Error(), result)
		return true
	}
	if n == 0 {
		_ = wouldBlock
		return false
	}

	result.BytesSent += n
	c.opts.Metrics.AddBytesSent(n)
	c.txOffset += n
	c.lastProgressAt = now
	if c.txOffset >= len(buf) {
		c.txOffset = 0
		onDone(now)
	}
	return true
}

// tryRecv attempts one bounded recv into the RX ring. A ring with no
// available space is a legitimate backpressure signal, not tried.
func (c *Connection) tryRecv(now int64, result *PollResult) bool {
	span := c.rx.WriteSpan()
	if len(span) == 0 {
		return false
	}
	if len(span) > maxIOChunkBytes {
		span = span[:maxIOChunkBytes]
	}

	n, wouldBlock, err := netio.RecvSome(c.sock, span)
	if err != nil {
		c.tripBreaker(now, "recv failed: "+err.Error(), result)
		return true
	}
	if wouldBlock {
		return false
	}
	if n == 0 {
		c.tripBreaker(now, "remote closed connection", result)
		return true
	}

	c.rx.CommitWrite(n)
	result.BytesRecv += n
	c.opts.Metrics.AddBytesRecv(n)
	c.lastProgressAt = now
	return true
}

func (c *Connection) beginRequest(now int64) {
	c.txPhase = phaseSendingQuery
	c.state = StateRequestSendQuery
	c.txOffset = 0
	c.lastProgressAt = now
}

func (c *Connection) transitionToReady(now int64) {
	if len(c.queue) > 0 {
		c.beginRequest(now)
		return
	}
	c.state = StateReady
	c.txPhase = 0
	c.txOffset = 0
}

func (c *Connection) finishRequest(now int64, success bool, msg string, result *PollResult) {
	req := c.queue[0]
	c.queue = c.queue[1:]
	c.inflightBytes -= req.totalBytes

	if success {
		result.RequestsCompleted++
		c.opts.Metrics.IncRequestsCompleted()
	} else {
		result.RequestsFailed++
		c.opts.Metrics.IncRequestsFailed()
		nlog.Warningf("request failed: %s", msg)
	}
	c.transitionToReady(now)
}

// tripBreaker drops all queued requests (counting them failed), closes
// the socket, resets every parser state, and disables new work until
// now + Cooldown.
func (c *Connection) tripBreaker(now int64, reason string, result *PollResult) {
	nlog.Warningf("connection breaker tripped: %s", reason)

	failed := len(c.queue)
	result.RequestsFailed += failed
	c.opts.Metrics.AddRequestsFailed(failed)
	c.opts.Metrics.IncBreakerTrips()
	c.opts.Metrics.SetConnected(false)

	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
	c.rx.Clear()
	c.dispatcher.ResetForNextPacket()
	c.hello.Reset()
	c.serverInfo = parse.ServerInfo{}

	c.queue = nil
	c.inflightBytes = 0
	c.txOffset = 0
	c.txPhase = 0
	c.state = StateDisconnected
	c.disabledUntil = now + c.opts.Cooldown.Nanoseconds()
}
