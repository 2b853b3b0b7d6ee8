package publish

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/metrics"
	"github.com/parallaxlab/headtrack/tracking"
)

// Publisher defaults.
const (
	DefaultAddress      = "127.0.0.1:5005"
	DefaultWriteTimeout = 5 * time.Millisecond
)

// Publish results recorded in metrics.
const (
	resultSent    = "sent"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// Config describes where and how positions are sent.
type Config struct {
	// Address is the host:port of the consumer, DefaultAddress when empty.
	Address string
	// Encoding is the payload format, EncodingJSON when empty.
	Encoding Encoding
	// WriteTimeout bounds a single send, DefaultWriteTimeout when zero.
	WriteTimeout time.Duration
}

// Validate fills defaults and checks the config.
func (conf *Config) Validate() error {
	if conf.Address == "" {
		conf.Address = DefaultAddress
	}
	enc, err := ParseEncoding(string(conf.Encoding))
	if err != nil {
		return err
	}
	conf.Encoding = enc
	if conf.WriteTimeout == 0 {
		conf.WriteTimeout = DefaultWriteTimeout
	}
	if conf.WriteTimeout < 0 {
		return errors.Errorf("write timeout must be positive, got %s", conf.WriteTimeout)
	}
	if _, _, err := net.SplitHostPort(conf.Address); err != nil {
		return errors.Wrapf(err, "invalid destination address %q", conf.Address)
	}
	return nil
}

// Publisher sends one datagram per valid frame to a fixed destination. No-detection frames
// send nothing, so a consumer sees the stream pause while no face is tracked. Sends are
// fire-and-forget: a failure is reported to the caller and never retried.
type Publisher struct {
	conn         net.PacketConn
	dest         net.Addr
	encoding     Encoding
	writeTimeout time.Duration

	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewUDPPublisher opens an unbound UDP socket for sending to conf.Address.
func NewUDPPublisher(conf Config, m *metrics.Metrics, logger logging.Logger) (*Publisher, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	dest, err := net.ResolveUDPAddr("udp", conf.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve destination %q", conf.Address)
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open udp socket")
	}
	logger.Infow("publishing head positions", "destination", dest.String(), "encoding", conf.Encoding)
	return NewPacketPublisher(conn, dest, conf.Encoding, conf.WriteTimeout, m, logger), nil
}

// NewPacketPublisher sends over an already open socket, which the publisher then owns.
func NewPacketPublisher(
	conn net.PacketConn,
	dest net.Addr,
	enc Encoding,
	writeTimeout time.Duration,
	m *metrics.Metrics,
	logger logging.Logger,
) *Publisher {
	if enc == "" {
		enc = EncodingJSON
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Publisher{
		conn:         conn,
		dest:         dest,
		encoding:     enc,
		writeTimeout: writeTimeout,
		metrics:      m,
		logger:       logger,
	}
}

// Destination is the address datagrams are sent to.
func (p *Publisher) Destination() net.Addr {
	return p.dest
}

// Publish sends the position of a valid result. It does not wait on ctx beyond the write timeout.
func (p *Publisher) Publish(ctx context.Context, res tracking.Result) error {
	if !res.IsValid() {
		p.metrics.IncrementPublish(resultSkipped)
		return nil
	}
	data, err := FromPoint(res.Point).Encode(p.encoding)
	if err != nil {
		p.metrics.IncrementPublish(resultFailed)
		return err
	}
	if err := p.send(data); err != nil {
		p.metrics.IncrementPublish(resultFailed)
		return err
	}
	p.metrics.IncrementPublish(resultSent)
	p.logger.CDebugw(ctx, "published", "bytes", len(data), "destination", p.dest.String())
	return nil
}

func (p *Publisher) send(data []byte) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return errors.Wrap(err, "failed to set write deadline")
	}
	n, err := p.conn.WriteTo(data, p.dest)
	if err != nil {
		return errors.Wrapf(err, "failed to send to %s", p.dest)
	}
	if n != len(data) {
		return errors.Errorf("short write to %s: %d of %d bytes", p.dest, n, len(data))
	}
	return nil
}

// Close releases the socket.
func (p *Publisher) Close(ctx context.Context) error {
	return errors.Wrap(p.conn.Close(), "closing udp socket")
}
