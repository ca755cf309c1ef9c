package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/waqiti/realtime-go/pkg/log"
	"github.com/waqiti/realtime-go/pkg/wire"
)

var baseTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.rtlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func sampleEvents() []log.Event {
	return []log.Event{
		{Timestamp: baseTime, ConnectionID: "abc12345-6789", Direction: log.DirectionIn, Layer: log.LayerService, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityConnection, OldState: "CONNECTING", NewState: "CONNECTED"}},
		{Timestamp: baseTime.Add(time.Second), ConnectionID: "abc12345-6789", UserID: "u1", Direction: log.DirectionOut, Layer: log.LayerWire,
			Message: &log.MessageEvent{Kind: wire.KindSubscribe, MessageID: 2, Topic: "wallet:W1"}},
		{Timestamp: baseTime.Add(2 * time.Second), ConnectionID: "abc12345-6789", UserID: "u1", Direction: log.DirectionIn, Layer: log.LayerWire,
			Message: &log.MessageEvent{Kind: wire.KindEvent, Topic: "wallet:W1", Event: wire.EventBalanceChanged,
				Payload: map[string]any{"walletId": "W1", "available": "10.00"}}},
		{Timestamp: baseTime.Add(3 * time.Second), ConnectionID: "abc12345-6789", UserID: "u1", Direction: log.DirectionIn, Layer: log.LayerTransport, Category: log.CategoryControl,
			Control: &log.ControlEvent{Type: log.ControlPong, Seq: 1, RTT: 20 * time.Millisecond}},
		{Timestamp: baseTime.Add(4 * time.Second), ConnectionID: "def99999-0000", Direction: log.DirectionIn, Layer: log.LayerService, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerService, Message: "dial timeout", Context: "dial"}},
	}
}

func TestBuildFilter(t *testing.T) {
	f, err := BuildFilter(FilterOptions{Layer: "WIRE", Direction: "out", Category: "message", TimeStart: "2026-01-28T10:00:00Z"})
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}
	if *f.Layer != log.LayerWire || *f.Direction != log.DirectionOut || *f.Category != log.CategoryMessage || f.TimeStart == nil {
		t.Errorf("filter: %+v", f)
	}

	bad := []FilterOptions{
		{Layer: "physical"},
		{Direction: "up"},
		{Category: "snapshot"},
		{TimeEnd: "yesterday"},
	}
	for _, opts := range bad {
		if _, err := BuildFilter(opts); err == nil {
			t.Errorf("BuildFilter(%+v) succeeded", opts)
		}
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z [conn:abc12345] IN  SERVICE State",
		"CONNECTING -> CONNECTED",
		"OUT WIRE SUBSCRIBE",
		"Topic: wallet:W1",
		"Event: balance.changed",
		`"available":"10.00"`,
		"CTRL PONG",
		"RTT: 20ms",
		"Context: dial",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	f, _ := BuildFilter(FilterOptions{Event: "balance.changed"})

	var buf bytes.Buffer
	if err := RunView(path, f, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	if n := strings.Count(buf.String(), "[conn:"); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for i, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Errorf("line %d is not JSON: %v", i, err)
		}
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6", len(records))
	}
	if records[2][6] != "SUBSCRIBE" || records[2][7] != "2" || records[2][8] != "wallet:W1" {
		t.Errorf("subscribe row: %v", records[2])
	}

	if err := RunExport(path, "xml", log.Filter{}, &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.rtlog")

	n, err := RunFilter(path, log.Filter{ConnectionID: "abc12345-6789"}, out)
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if n != 4 {
		t.Errorf("copied %d events, want 4", n)
	}

	stats, err := CollectStats(out)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.TotalEvents != 4 || len(stats.Connections) != 1 {
		t.Errorf("filtered stats: total=%d conns=%d", stats.TotalEvents, len(stats.Connections))
	}

	if _, err := RunFilter(path, log.Filter{}, path); err == nil {
		t.Error("expected error when output equals input")
	}
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := CollectStats(path)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.TotalEvents != 5 || stats.Errors != 1 {
		t.Errorf("total=%d errors=%d", stats.TotalEvents, stats.Errors)
	}
	if stats.EventsByName["balance.changed"] != 1 {
		t.Errorf("EventsByName: %v", stats.EventsByName)
	}
	conn := stats.Connections["abc12345-6789"]
	if conn == nil || conn.UserID != "u1" || conn.MeanRTT() != 20*time.Millisecond {
		t.Errorf("connection stats: %+v", conn)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	for _, want := range []string{"Total Events: 5", "Connections: 2", "balance.changed:", "Mean RTT: 20ms", "Errors: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("stats output missing %q", want)
		}
	}
}
