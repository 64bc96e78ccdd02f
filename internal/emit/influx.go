package emit

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
)

// measurement is the fixed series name every point is written under.
const measurement = "godtm"

// Influx writes one cycle's points as a single InfluxDB 1.x batch with
// millisecond precision.
type Influx struct {
	client   client.Client
	database string
	log      *slog.Logger
}

var _ Emitter = (*Influx)(nil)

// NewInflux connects to InfluxDB and pings it once; an unreachable backend
// is a startup failure, not something to discover cycles later.
func NewInflux(url, username, password, database string, log *slog.Logger) (*Influx, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     url,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating influxdb client: %w", err)
	}

	if _, _, err := c.Ping(5 * time.Second); err != nil {
		c.Close()
		return nil, fmt.Errorf("pinging influxdb: %w", err)
	}

	return &Influx{client: c, database: database, log: log}, nil
}

// Emit writes the batch. A failure drops the whole cycle's points.
func (i *Influx) Emit(points []Point) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  i.database,
		Precision: "ms",
	})
	if err != nil {
		return &EmissionError{Backend: "influxdb", Err: err}
	}

	for _, p := range points {
		pt, err := client.NewPoint(
			measurement,
			map[string]string{
				"name":       p.Tag,
				"frequency":  strconv.Itoa(p.Frequency),
				"modulation": p.Modulation,
			},
			map[string]interface{}{
				"speed": p.Rate,
			},
			p.Time,
		)
		if err != nil {
			return &EmissionError{Backend: "influxdb", Err: err}
		}
		bp.AddPoint(pt)
	}

	if err := i.client.Write(bp); err != nil {
		return &EmissionError{Backend: "influxdb", Err: err}
	}

	i.log.Debug("influx_batch_written", "points", len(points), "database", i.database)
	return nil
}

// Close releases the HTTP client.
func (i *Influx) Close() error {
	return i.client.Close()
}
