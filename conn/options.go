package conn

import (
	"time"

	"github.com/ClickHouse/ch-native-core/cmn/cos"
	"github.com/ClickHouse/ch-native-core/codec"
	"github.com/ClickHouse/ch-native-core/metrics"
)

// Options configures a Connection. NewConnection fills in every zero field
// with its documented default before storing the result.
type Options struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	MaxInflightRequests int
	MaxInflightBytes    int64
	InboxRingBytes      int

	ConnectTimeout time.Duration
	StallTimeout   time.Duration
	Cooldown       time.Duration

	// Codec is the compression collaborator this core carries but never
	// invokes on the wire (it always advertises protocol.CompressionDisable).
	Codec codec.CompressionCodec

	// Metrics, if non-nil, is updated inside Poll as bytes are sent and
	// received, requests complete or fail, and the breaker trips, and by
	// Close.
	Metrics *metrics.Recorder
}

const (
	defaultPort                = 9000
	defaultDatabase            = "default"
	defaultUser                = "default"
	defaultMaxInflightRequests = 64
	defaultMaxInflightBytes    = 16 * cos.MiB
	defaultInboxRingBytes      = 1 * cos.MiB
	defaultConnectTimeout      = 2 * time.Second
	defaultStallTimeout        = 2 * time.Second
	defaultCooldown            = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = defaultPort
	}
	if o.Database == "" {
		o.Database = defaultDatabase
	}
	if o.User == "" {
		o.User = defaultUser
	}
	if o.MaxInflightRequests == 0 {
		o.MaxInflightRequests = defaultMaxInflightRequests
	}
	if o.MaxInflightBytes == 0 {
		o.MaxInflightBytes = defaultMaxInflightBytes
	}
	if o.InboxRingBytes <= 0 {
		o.InboxRingBytes = defaultInboxRingBytes
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.StallTimeout == 0 {
		o.StallTimeout = defaultStallTimeout
	}
	if o.Cooldown == 0 {
		o.Cooldown = defaultCooldown
	}
	if o.Codec == nil {
		o.Codec = codec.Disabled
	}
	return o
}
