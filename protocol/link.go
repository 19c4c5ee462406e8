package protocol

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

// Link is a framed packet connection to the relay server. Writes may be issued from any goroutine, reads must come
// from a single goroutine.
type Link struct {
	Conn  net.Conn
	mutex sync.Mutex
}

func NewLink(conn net.Conn) *Link {
	return &Link{Conn: conn}
}

func DialRelay(ctx context.Context, host string, port uint16) (*Link, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, err
	}
	return NewLink(conn), nil
}

func (l *Link) WritePacket(p Packet) error {
	out, err := Marshal(p)
	if err != nil {
		return err
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return send(l.Conn, out)
}

// ReadPacket blocks until a full frame is read. A frame that does not decode returns an error wrapping ErrMalformed,
// the stream stays usable. Any other error is a transport failure.
func (l *Link) ReadPacket() (Packet, error) {
	data, err := receive(l.Conn)
	if err != nil {
		return Packet{}, err
	}
	return Unmarshal(data)
}

func (l *Link) SetReadDeadline(t time.Time) error {
	return l.Conn.SetReadDeadline(t)
}

func (l *Link) Close() error {
	return l.Conn.Close()
}

func (l *Link) String() string {
	return fmt.Sprintf("%s->%s", l.Conn.LocalAddr(), l.Conn.RemoteAddr())
}

func receive(c io.Reader) ([]byte, error) {
	var length uint32

	err := binary.Read(c, binary.BigEndian, &length)
	if err != nil {
		return nil, err
	}

	if length == 0 {
		// nothing to read, the next frame starts right after the header
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	if length > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketSize, length)
	}

	data := make([]byte, length)

	_, err = io.ReadFull(c, data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func send(c io.Writer, out []byte) error {
	if len(out) == 0 || len(out) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketSize, len(out))
	}

	buf := make([]byte, 4+len(out))
	binary.BigEndian.PutUint32(buf, uint32(len(out)))
	copy(buf[4:], out)
	_, err := c.Write(buf)
	return err
}
