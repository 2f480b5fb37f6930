package hooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// WriteOutput re-indents the server's JSON answer onto w.
func WriteOutput(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// WriteError reports a failed hook on w. Hooks never fail their caller.
func WriteError(w io.Writer, err error) {
	fmt.Fprintf(w, "warmth hook: %v\n", err)
}
