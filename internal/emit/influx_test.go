package emit

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// influxRecorder captures what the client actually sent.
type influxRecorder struct {
	mu        sync.Mutex
	database  string
	precision string
	bodies    []string
}

// mockInfluxServer serves the two endpoints the client touches: /ping for
// the startup probe and /write for batches.
func mockInfluxServer(rec *influxRecorder) *httptest.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.Header().Set("X-Influxdb-Version", "1.8.10")
			w.WriteHeader(http.StatusNoContent)
		case "/write":
			body, _ := io.ReadAll(r.Body)
			rec.mu.Lock()
			rec.database = r.URL.Query().Get("db")
			rec.precision = r.URL.Query().Get("precision")
			rec.bodies = append(rec.bodies, string(body))
			rec.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(handler)
}

func TestInflux_Emit(t *testing.T) {
	rec := &influxRecorder{}
	server := mockInfluxServer(rec)
	defer server.Close()

	in, err := NewInflux(server.URL, "influx", "secret", "godtm", testLogger())
	if err != nil {
		t.Fatalf("NewInflux returned error: %v", err)
	}
	defer in.Close()

	ts := time.Unix(1724583600, 0)
	points := []Point{
		{Tag: "qam256.114", Frequency: 114, Modulation: "qam256", Rate: 1.47, Time: ts},
		{Tag: "qam64.120", Frequency: 120, Modulation: "qam64", Rate: 2048.5, Time: ts},
	}

	if err := in.Emit(points); err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.database != "godtm" {
		t.Errorf("db = %q, want godtm", rec.database)
	}
	if rec.precision != "ms" {
		t.Errorf("precision = %q, want ms", rec.precision)
	}
	if len(rec.bodies) != 1 {
		t.Fatalf("got %d writes, want 1 batch", len(rec.bodies))
	}

	body := rec.bodies[0]

	// InfluxDB line protocol sorts tags alphabetically.
	if !strings.Contains(body, "godtm,frequency=114,modulation=qam256,name=qam256.114 speed=1.47") {
		t.Errorf("batch missing the qam256.114 point:\n%s", body)
	}
	if !strings.Contains(body, "godtm,frequency=120,modulation=qam64,name=qam64.120 speed=2048.5") {
		t.Errorf("batch missing the qam64.120 point:\n%s", body)
	}
	if !strings.Contains(body, strconv.FormatInt(ts.UnixMilli(), 10)) {
		t.Errorf("batch missing millisecond timestamp %d:\n%s", ts.UnixMilli(), body)
	}

	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 2 {
		t.Errorf("batch has %d lines, want 2", len(lines))
	}
}

func TestNewInflux_PingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no influx here", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewInflux(server.URL, "influx", "", "godtm", testLogger())
	if err == nil {
		t.Fatal("Expected error when ping fails")
	}
	if !strings.Contains(err.Error(), "ping") {
		t.Errorf("error should mention the ping: %v", err)
	}
}

func TestInflux_EmitFailure(t *testing.T) {
	failWrites := false
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.Header().Set("X-Influxdb-Version", "1.8.10")
			w.WriteHeader(http.StatusNoContent)
		case "/write":
			mu.Lock()
			fail := failWrites
			mu.Unlock()
			if fail {
				http.Error(w, `{"error":"database is down"}`, http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	in, err := NewInflux(server.URL, "influx", "", "godtm", testLogger())
	if err != nil {
		t.Fatalf("NewInflux returned error: %v", err)
	}
	defer in.Close()

	mu.Lock()
	failWrites = true
	mu.Unlock()

	err = in.Emit([]Point{{Tag: "qam256.114", Frequency: 114, Modulation: "qam256", Rate: 1.0, Time: time.Now()}})
	if err == nil {
		t.Fatal("Expected error when the write fails")
	}

	var emitErr *EmissionError
	if !errors.As(err, &emitErr) {
		t.Fatalf("error type = %T, want *EmissionError", err)
	}
	if emitErr.Backend != "influxdb" {
		t.Errorf("Backend = %q, want influxdb", emitErr.Backend)
	}
}
