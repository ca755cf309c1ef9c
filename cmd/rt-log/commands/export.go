package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/waqiti/realtime-go/pkg/log"
)

// RunExport writes matching events to w as jsonl or csv.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	switch format {
	case "jsonl":
		return exportJSONL(path, filter, w)
	case "csv":
		return exportCSV(path, filter, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(path string, filter log.Filter, w io.Writer) error {
	enc := json.NewEncoder(w)
	return eachEvent(path, filter, func(e log.Event) error {
		if e.Message != nil && e.Message.Payload != nil {
			m := *e.Message
			m.Payload = jsonSafe(m.Payload)
			e.Message = &m
		}
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

var csvHeader = []string{
	"timestamp", "connection_id", "user_id", "direction", "layer", "category",
	"type", "message_id", "topic", "event",
}

func exportCSV(path string, filter log.Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return eachEvent(path, filter, func(e log.Event) error {
		var msgID, topic, name string
		if e.Message != nil {
			if e.Message.MessageID != 0 {
				msgID = strconv.FormatUint(uint64(e.Message.MessageID), 10)
			}
			topic = e.Message.Topic
			name = string(e.Message.Event)
		}
		row := []string{
			e.Timestamp.UTC().Format(timestampLayout),
			e.ConnectionID,
			e.UserID,
			e.Direction.String(),
			e.Layer.String(),
			e.Category.String(),
			eventLabel(e),
			msgID,
			topic,
			name,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
}
