// Package eventlog reads batches of hook events from JSONL files, one event
// per line, so a backlog recorded while the server was down can be replayed.
package eventlog

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/lazypower/warmth/internal/hooks"
	"github.com/m-mizutani/goerr/v2"
)

const maxLine = 1024 * 1024

// Entry is one parsed line. Name is the hook event ("interaction", "mode",
// "contact") and Payload its fields.
type Entry struct {
	Line    int
	Name    string
	Payload hooks.Event
}

// Skipped describes a line that could not be used.
type Skipped struct {
	Line   int
	Reason string
}

// ParseFile reads a JSONL event log from path.
func ParseFile(path string) ([]Entry, []Skipped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "open event log", goerr.V("path", path))
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads JSONL events from r. Blank lines are ignored; malformed or
// invalid lines are reported in the skipped list rather than failing the batch.
func Parse(r io.Reader) ([]Entry, []Skipped, error) {
	var (
		entries []Entry
		skipped []Skipped
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		entry, err := parseLine(text)
		if err != nil {
			skipped = append(skipped, Skipped{Line: n, Reason: err.Error()})
			continue
		}
		entry.Line = n
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, goerr.Wrap(err, "scan event log", goerr.V("line", n+1))
	}
	return entries, skipped, nil
}

func parseLine(text string) (Entry, error) {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal([]byte(text), &head); err != nil {
		return Entry{}, err
	}
	name := strings.ToLower(strings.TrimSpace(head.Event))
	if name == "" {
		return Entry{}, goerr.New("event required")
	}

	var payload hooks.Event
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Entry{}, err
	}
	if err := payload.Validate(name); err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Payload: payload}, nil
}
