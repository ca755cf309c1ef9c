package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/waqiti/realtime-go/pkg/log"
)

// RunView prints matching events in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	return eachEvent(path, filter, func(e log.Event) error {
		formatEvent(w, e)
		return nil
	})
}

// formatEvent writes a header line and indented details, then a blank line.
func formatEvent(w io.Writer, event log.Event) {
	layer := event.Layer.String()
	if event.Category == log.CategoryControl {
		layer = "CTRL"
	}
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format(timestampLayout),
		shortID(event.ConnectionID),
		event.Direction.String(),
		layer,
		eventLabel(event))

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
		if len(event.Frame.Data) > 0 {
			fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(event.Frame.Data))
			if event.Frame.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.Message != nil:
		formatMessage(w, event.Message)
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Control != nil:
		if event.Control.Seq != 0 {
			fmt.Fprintf(w, "  Seq: %d\n", event.Control.Seq)
		}
		if event.Control.RTT > 0 {
			fmt.Fprintf(w, "  RTT: %s\n", event.Control.RTT)
		}
		if event.Control.CloseCode != 0 {
			fmt.Fprintf(w, "  Code: %d\n", event.Control.CloseCode)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Layer: %s\n", event.Error.Layer.String())
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}
	fmt.Fprintln(w)
}

func formatMessage(w io.Writer, m *log.MessageEvent) {
	if m.MessageID != 0 {
		fmt.Fprintf(w, "  MessageID: %d\n", m.MessageID)
	}
	if m.Topic != "" {
		fmt.Fprintf(w, "  Topic: %s\n", m.Topic)
	}
	if m.Event != "" {
		fmt.Fprintf(w, "  Event: %s\n", m.Event)
	}
	if m.ErrorCode != 0 {
		fmt.Fprintf(w, "  Code: %d\n", m.ErrorCode)
	}
	if m.Payload != nil {
		if data, err := json.Marshal(jsonSafe(m.Payload)); err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", data)
		}
	}
}

// jsonSafe converts CBOR-decoded maps with interface keys into
// map[string]any so encoding/json can marshal them.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = jsonSafe(val)
		}
		return out
	default:
		return v
	}
}
