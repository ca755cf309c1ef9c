package commands

import (
	"fmt"

	"github.com/waqiti/realtime-go/pkg/log"
)

// RunFilter copies matching events into a new capture file and returns how
// many were copied.
func RunFilter(path string, filter log.Filter, output string) (int, error) {
	if output == path {
		return 0, fmt.Errorf("output must differ from input")
	}

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	err = eachEvent(path, filter, func(e log.Event) error {
		out.Log(e)
		return nil
	})
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return out.Written(), err
}
