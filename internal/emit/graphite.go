package emit

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// Graphite sends plaintext protocol lines over UDP, one datagram per point:
//
//	{prefix}.{modulation}.{frequency} {rate} {unix_seconds}
type Graphite struct {
	conn   net.Conn
	prefix string
	log    *slog.Logger
}

var _ Emitter = (*Graphite)(nil)

// NewGraphite resolves the carbon endpoint once and holds the socket for
// the process lifetime. UDP means no handshake; a dead carbon only shows
// up as lost points.
func NewGraphite(host string, port int, prefix string, log *slog.Logger) (*Graphite, error) {
	conn, err := net.Dial("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dialing graphite: %w", err)
	}
	return &Graphite{conn: conn, prefix: prefix, log: log}, nil
}

// Emit writes one line per point. The first send error aborts the batch;
// lines already sent stand, graphite has nothing to roll back.
func (g *Graphite) Emit(points []Point) error {
	for _, p := range points {
		line := fmt.Sprintf("%s.%s.%d %.2f %d\n", g.prefix, p.Modulation, p.Frequency, p.Rate, p.Time.Unix())
		if _, err := g.conn.Write([]byte(line)); err != nil {
			return &EmissionError{Backend: "graphite", Err: err}
		}
	}
	g.log.Debug("graphite_lines_sent", "points", len(points))
	return nil
}

// Close releases the socket.
func (g *Graphite) Close() error {
	return g.conn.Close()
}
