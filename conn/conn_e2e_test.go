package conn_test

import (
	"io"
	"net"
	"time"

	"github.com/ClickHouse/ch-native-core/block"
	"github.com/ClickHouse/ch-native-core/block/memblock"
	"github.com/ClickHouse/ch-native-core/cmn/mono"
	"github.com/ClickHouse/ch-native-core/conn"
	"github.com/ClickHouse/ch-native-core/encode"
	"github.com/ClickHouse/ch-native-core/protocol"
	"github.com/ClickHouse/ch-native-core/wire"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// These specs drive Connection against a real loopback TCP listener playing
// a scripted ClickHouse server: just enough of the handshake and INSERT
// round trip to exercise the state machine end to end, built from the same
// encode.* functions Connection itself uses so the script's byte lengths
// line up exactly with what Connection sends.

const revision = protocol.ClientProtocolRevision

func serverHelloBytes(rev uint64) []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, protocol.ServerHello)
	buf = wire.AppendString(buf, "ClickHouse test-server")
	buf = wire.AppendVarint(buf, 22)
	buf = wire.AppendVarint(buf, 8)
	buf = wire.AppendVarint(buf, rev)
	if rev >= protocol.MinRevisionWithServerTimezone {
		buf = wire.AppendString(buf, "UTC")
	}
	if rev >= protocol.MinRevisionWithServerDisplayName {
		buf = wire.AppendString(buf, "test-server")
	}
	if rev >= protocol.MinRevisionWithVersionPatch {
		buf = wire.AppendVarint(buf, 1)
	}
	return buf
}

func serverDataSchemaBytes(colName, colType string, rev uint64) []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, protocol.ServerData)
	if rev >= protocol.MinRevisionWithTemporaryTables {
		buf = wire.AppendString(buf, "")
	}
	if rev >= protocol.MinRevisionWithBlockInfo {
		buf = wire.AppendVarint(buf, 1)
		buf = wire.PutUint8(buf, 0)
		buf = wire.AppendVarint(buf, 2)
		buf = wire.PutInt32(buf, -1)
		buf = wire.AppendVarint(buf, 0)
	}
	buf = wire.AppendVarint(buf, 1) // one column
	buf = wire.AppendVarint(buf, 0) // zero rows: this is a schema-only block
	buf = wire.AppendString(buf, colName)
	buf = wire.AppendString(buf, colType)
	if rev >= protocol.MinRevisionWithCustomSerialization {
		buf = wire.PutUint8(buf, 0)
	}
	return buf
}

func serverEndOfStreamBytes() []byte {
	return wire.AppendVarint(nil, protocol.ServerEndOfStream)
}

func serverExceptionBytes(code int32, name, displayText, stackTrace string) []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, protocol.ServerException)
	buf = wire.PutInt32(buf, code)
	buf = wire.AppendString(buf, name)
	buf = wire.AppendString(buf, displayText)
	buf = wire.AppendString(buf, stackTrace)
	buf = wire.PutUint8(buf, 0) // has_nested = false
	return buf
}

func readExactly(r io.Reader, n int) error {
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return err
}

func testBlock() block.Block {
	return memblock.Block{
		Cols: []memblock.Column{{ColumnName: "id", ColumnType: "UInt64", Data: []byte{42, 0, 0, 0, 0, 0, 0, 0}}},
		Rows: 1,
	}
}

func listen() (net.Listener, string, int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := ln.Addr().(*net.TCPAddr)
	return ln, "127.0.0.1", addr.Port
}

func pollUntil(c *conn.Connection, timeout time.Duration, done func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.Poll(mono.NanoTime(), 20*time.Millisecond)
		if done() {
			return
		}
	}
}

var _ = Describe("Connection end to end", func() {
	var ln net.Listener
	var host string
	var port int

	BeforeEach(func() {
		ln, host, port = listen()
	})

	AfterEach(func() {
		ln.Close()
	})

	It("completes a happy-path INSERT", func() {
		queryText := "INSERT INTO t ( `id` ) VALUES"
		queryBytes, err := encode.Query(queryText, "q1", revision)
		Expect(err).NotTo(HaveOccurred())
		terminatorBytes, err := encode.Data(block.Empty(), revision)
		Expect(err).NotTo(HaveOccurred())
		dataBytes, err := encode.Data(testBlock(), revision)
		Expect(err).NotTo(HaveOccurred())
		endBytes, err := encode.Data(block.Empty(), revision)
		Expect(err).NotTo(HaveOccurred())
		helloBytes := encode.Hello(encode.HelloOptions{Database: "default", User: "default", Password: ""})
		addendumBytes := encode.Addendum()

		serverErr := make(chan error, 1)
		go func() {
			sc, err := ln.Accept()
			if err != nil {
				serverErr <- err
				return
			}
			defer sc.Close()
			sc.SetDeadline(time.Now().Add(10 * time.Second))

			if err := readExactly(sc, len(helloBytes)); err != nil {
				serverErr <- err
				return
			}
			if _, err := sc.Write(serverHelloBytes(revision)); err != nil {
				serverErr <- err
				return
			}
			if err := readExactly(sc, len(addendumBytes)); err != nil {
				serverErr <- err
				return
			}
			if err := readExactly(sc, len(queryBytes)+len(terminatorBytes)); err != nil {
				serverErr <- err
				return
			}
			if _, err := sc.Write(serverDataSchemaBytes("id", "UInt64", revision)); err != nil {
				serverErr <- err
				return
			}
			if err := readExactly(sc, len(dataBytes)+len(endBytes)); err != nil {
				serverErr <- err
				return
			}
			if _, err := sc.Write(serverEndOfStreamBytes()); err != nil {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()

		c := conn.NewConnection(conn.Options{
			Host:           host,
			Port:           port,
			ConnectTimeout: 2 * time.Second,
			StallTimeout:   2 * time.Second,
		})
		Expect(c.StartConnect()).To(Succeed())

		pollUntil(c, 5*time.Second, func() bool { return c.State() == conn.StateReady })
		Expect(c.State()).To(Equal(conn.StateReady))

		Expect(c.EnqueueInsert("t", testBlock(), "q1")).To(Equal(conn.Queued))

		var completed, failed int
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) && c.InflightRequests() > 0 {
			res := c.Poll(mono.NanoTime(), 20*time.Millisecond)
			completed += res.RequestsCompleted
			failed += res.RequestsFailed
		}

		Expect(failed).To(Equal(0))
		Expect(completed).To(Equal(1))
		Expect(c.InflightRequests()).To(Equal(0))
		Expect(c.InflightBytes()).To(Equal(int64(0)))
		Expect(c.Disabled()).To(BeFalse())

		Eventually(serverErr, 2*time.Second).Should(Receive(BeNil()))
	})

	It("trips the breaker when the server raises an exception on the query", func() {
		queryText := "INSERT INTO t ( `id` ) VALUES"
		queryBytes, err := encode.Query(queryText, "q1", revision)
		Expect(err).NotTo(HaveOccurred())
		terminatorBytes, err := encode.Data(block.Empty(), revision)
		Expect(err).NotTo(HaveOccurred())
		helloBytes := encode.Hello(encode.HelloOptions{Database: "default", User: "default", Password: ""})
		addendumBytes := encode.Addendum()

		serverErr := make(chan error, 1)
		go func() {
			sc, err := ln.Accept()
			if err != nil {
				serverErr <- err
				return
			}
			defer sc.Close()
			sc.SetDeadline(time.Now().Add(10 * time.Second))

			if err := readExactly(sc, len(helloBytes)); err != nil {
				serverErr <- err
				return
			}
			if _, err := sc.Write(serverHelloBytes(revision)); err != nil {
				serverErr <- err
				return
			}
			if err := readExactly(sc, len(addendumBytes)); err != nil {
				serverErr <- err
				return
			}
			if err := readExactly(sc, len(queryBytes)+len(terminatorBytes)); err != nil {
				serverErr <- err
				return
			}
			_, err = sc.Write(serverExceptionBytes(60, "DB::Exception", "Table t doesn't exist", ""))
			serverErr <- err
		}()

		c := conn.NewConnection(conn.Options{
			Host:           host,
			Port:           port,
			ConnectTimeout: 2 * time.Second,
			StallTimeout:   2 * time.Second,
			Cooldown:       3 * time.Second,
		})
		Expect(c.StartConnect()).To(Succeed())

		pollUntil(c, 5*time.Second, func() bool { return c.State() == conn.StateReady })
		Expect(c.State()).To(Equal(conn.StateReady))

		Expect(c.EnqueueInsert("t", testBlock(), "q1")).To(Equal(conn.Queued))

		var failed int
		pollUntil(c, 5*time.Second, func() bool {
			res := c.Poll(mono.NanoTime(), 20*time.Millisecond)
			failed += res.RequestsFailed
			return c.State() == conn.StateDisconnected
		})

		Expect(failed).To(Equal(1))
		Expect(c.State()).To(Equal(conn.StateDisconnected))
		Expect(c.InflightRequests()).To(Equal(0))
		Expect(c.InflightBytes()).To(Equal(int64(0)))
		Expect(c.Disabled()).To(BeTrue())

		Eventually(serverErr, 2*time.Second).Should(Receive(BeNil()))
	})

	It("rejects EnqueueInsert with NotConnected before the handshake completes", func() {
		c := conn.NewConnection(conn.Options{Host: host, Port: port})
		Expect(c.EnqueueInsert("t", testBlock(), "q1")).To(Equal(conn.NotConnected))
	})
})
