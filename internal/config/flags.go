package config

import (
	"time"

	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
)

// ParseFlags parses command-line flags and returns a Config. Every flag can
// also be set through a GODTM_* environment variable; an explicit flag wins
// over the environment, the environment wins over the default.
func ParseFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()

	app := kingpin.New("godtm", "Measure EuroDOCSIS 3.0 downstream data rates with a DVB-C tuner.")
	app.Version(version.Print("godtm"))
	app.HelpFlag.Short('h')

	// DVB device selection
	adapter := app.Flag("adapter", "Use /dev/dvb/adapterN devices.").
		Short('a').Default("0").OverrideDefaultFromEnvar("GODTM_ADAPTER").Int()
	tuner := app.Flag("tuner", "Use the adapter's frontendN/demuxN/dvrN devices.").
		Short('t').Default("0").OverrideDefaultFromEnvar("GODTM_TUNER").Int()

	// Scan plan
	frequencies := app.Flag("frequencies", "Comma-separated list of 'frequency' or 'frequency:modulation' pairs.").
		Short('f').Default(cfg.Frequencies).OverrideDefaultFromEnvar("GODTM_FREQUENCIES").String()
	step := app.Flag("step", "Total scan time per cycle in seconds, split evenly across channels.").
		Short('s').Default("60").OverrideDefaultFromEnvar("GODTM_STEP").Int()
	interval := app.Flag("interval", "Seconds to wait between scan cycle starts.").
		Short('i').Default("300").OverrideDefaultFromEnvar("GODTM_INTERVAL").Int()
	locktime := app.Flag("locktime", "Frontend lock settle time in seconds.").
		Short('l').Default("1").OverrideDefaultFromEnvar("GODTM_LOCKTIME").Int()

	// Backend selection
	backend := app.Flag("backend", "Metrics backend: influxdb or graphite.").
		Default(cfg.Backend).OverrideDefaultFromEnvar("GODTM_BACKEND").String()

	// InfluxDB
	influxURL := app.Flag("influx-url", "Base URL of the InfluxDB HTTP endpoint.").
		Default(cfg.InfluxURL).OverrideDefaultFromEnvar("GODTM_INFLUXDB_URL").String()
	influxUsername := app.Flag("influx-username", "Username for InfluxDB.").
		Default(cfg.InfluxUsername).OverrideDefaultFromEnvar("GODTM_INFLUXDB_USERNAME").String()
	influxPassword := app.Flag("influx-password", "Password for InfluxDB.").
		Default(cfg.InfluxPassword).OverrideDefaultFromEnvar("GODTM_INFLUXDB_PASSWORD").String()
	influxDatabase := app.Flag("influx-database", "Database name for InfluxDB.").
		Default(cfg.InfluxDatabase).OverrideDefaultFromEnvar("GODTM_INFLUXDB_DATABASE").String()

	// Graphite
	graphiteHost := app.Flag("graphite-host", "Graphite/carbon host for plaintext UDP lines.").
		Default(cfg.GraphiteHost).OverrideDefaultFromEnvar("GODTM_GRAPHITE_HOST").String()
	graphitePort := app.Flag("graphite-port", "Graphite/carbon plaintext port.").
		Default("2003").OverrideDefaultFromEnvar("GODTM_GRAPHITE_PORT").Int()
	graphitePrefix := app.Flag("graphite-prefix", "Metric path prefix for graphite lines.").
		Default(cfg.GraphitePrefix).OverrideDefaultFromEnvar("GODTM_GRAPHITE_PREFIX").String()

	// Observability
	metricsAddr := app.Flag("metrics-addr", "Prometheus metrics listen address.").
		Default(cfg.MetricsAddr).OverrideDefaultFromEnvar("GODTM_METRICS_ADDR").String()
	tui := app.Flag("tui", "Enable the live terminal dashboard.").
		Default("false").Bool()
	debug := app.Flag("debug", "Enable debug logging.").
		Short('d').Default("false").OverrideDefaultFromEnvar("GODTM_DEBUG").Bool()
	logFormat := app.Flag("log-format", "Log format: json or text.").
		Default(cfg.LogFormat).OverrideDefaultFromEnvar("GODTM_LOG_FORMAT").String()
	skipPreflight := app.Flag("skip-preflight", "Skip the device preflight checks.").
		Default("false").OverrideDefaultFromEnvar("GODTM_SKIP_PREFLIGHT").Bool()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	cfg.Adapter = *adapter
	cfg.Tuner = *tuner
	cfg.Frequencies = *frequencies
	cfg.Step = time.Duration(*step) * time.Second
	cfg.Interval = time.Duration(*interval) * time.Second
	cfg.LockTime = time.Duration(*locktime) * time.Second
	cfg.Backend = *backend
	cfg.InfluxURL = *influxURL
	cfg.InfluxUsername = *influxUsername
	cfg.InfluxPassword = *influxPassword
	cfg.InfluxDatabase = *influxDatabase
	cfg.GraphiteHost = *graphiteHost
	cfg.GraphitePort = *graphitePort
	cfg.GraphitePrefix = *graphitePrefix
	cfg.MetricsAddr = *metricsAddr
	cfg.TUIEnabled = *tui
	cfg.Debug = *debug
	cfg.LogFormat = *logFormat
	cfg.SkipPreflight = *skipPreflight

	return cfg, nil
}
