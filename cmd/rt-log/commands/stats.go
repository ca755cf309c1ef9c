package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/waqiti/realtime-go/pkg/log"
)

// Stats aggregates a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByName      map[string]int
	Connections       map[string]*ConnectionStats
	Errors            int
	Start, End        time.Time
}

// ConnectionStats aggregates one connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	UserID    string
	Pongs     int
	TotalRTT  time.Duration
}

// MeanRTT is the average keepalive round trip, or zero without pongs.
func (c *ConnectionStats) MeanRTT() time.Duration {
	if c.Pongs == 0 {
		return 0
	}
	return c.TotalRTT / time.Duration(c.Pongs)
}

// CollectStats reads path and aggregates every event.
func CollectStats(path string) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByName:      make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	err := eachEvent(path, log.Filter{}, func(e log.Event) error {
		stats.TotalEvents++
		stats.EventsByLayer[e.Layer]++
		stats.EventsByCategory[e.Category]++
		stats.EventsByDirection[e.Direction]++

		if stats.Start.IsZero() || e.Timestamp.Before(stats.Start) {
			stats.Start = e.Timestamp
		}
		if e.Timestamp.After(stats.End) {
			stats.End = e.Timestamp
		}

		conn, ok := stats.Connections[e.ConnectionID]
		if !ok {
			conn = &ConnectionStats{FirstSeen: e.Timestamp, LastSeen: e.Timestamp}
			stats.Connections[e.ConnectionID] = conn
		}
		conn.Events++
		if e.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = e.Timestamp
		}
		if conn.UserID == "" {
			conn.UserID = e.UserID
		}

		switch {
		case e.Message != nil && e.Message.Event != "":
			stats.EventsByName[string(e.Message.Event)]++
		case e.Control != nil && e.Control.Type == log.ControlPong && e.Control.RTT > 0:
			conn.Pongs++
			conn.TotalRTT += e.Control.RTT
		case e.Error != nil:
			stats.Errors++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RunStats prints the statistics of path.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Realtime Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", stats.Start.Format(time.RFC3339), stats.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.End.Sub(stats.Start).Round(time.Second))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", stats.TotalEvents)

	fmt.Fprintln(w, "Events by Layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerService} {
		if n := stats.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", l.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	if len(stats.EventsByName) > 0 {
		names := make([]string, 0, len(stats.EventsByName))
		for name := range stats.EventsByName {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "Server Events:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-24s %d\n", name+":", stats.EventsByName[name])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	ids := make([]string, 0, len(stats.Connections))
	for id := range stats.Connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Connections[ids[i]].FirstSeen.Before(stats.Connections[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		c := stats.Connections[id]
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortID(id), c.Events, c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond))
		if c.UserID != "" {
			fmt.Fprintf(w, "           User: %s\n", c.UserID)
		}
		if rtt := c.MeanRTT(); rtt > 0 {
			fmt.Fprintf(w, "           Mean RTT: %s (%d pongs)\n", rtt, c.Pongs)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", stats.Errors)
	}
}
