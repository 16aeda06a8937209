// Package orbit turns two-line element sets into scene packets with sampled
// Earth-fixed positions.
package orbit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedTLE is returned for element sets that are not two lines
// starting with "1 " and "2 ", optionally preceded by a name line.
var ErrMalformedTLE = errors.New("orbit: malformed TLE")

// Satellite is one element set plus display settings.
type Satellite struct {
	ID    string
	Name  string
	Line1 string
	Line2 string
}

// CatalogNumber returns the NORAD catalog number from line 1.
func (s Satellite) CatalogNumber() string {
	if len(s.Line1) < 7 {
		return ""
	}
	return strings.TrimSpace(s.Line1[2:7])
}

// ParseTLE reads element sets in two- or three-line form. Blank lines are
// ignored. Satellites without a name line are named by catalog number; ids
// are "sat-<catalog number>".
func ParseTLE(r io.Reader) ([]Satellite, error) {
	sc := bufio.NewScanner(r)
	var (
		out     []Satellite
		name    string
		pending *Satellite
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "1 "):
			if pending != nil {
				return nil, fmt.Errorf("%w: line %d: line 1 without line 2", ErrMalformedTLE, lineNo)
			}
			pending = &Satellite{Name: name, Line1: line}
			name = ""
		case strings.HasPrefix(line, "2 "):
			if pending == nil {
				return nil, fmt.Errorf("%w: line %d: line 2 without line 1", ErrMalformedTLE, lineNo)
			}
			pending.Line2 = line
			if pending.CatalogNumber() == "" {
				return nil, fmt.Errorf("%w: line %d: missing catalog number", ErrMalformedTLE, lineNo)
			}
			pending.ID = "sat-" + pending.CatalogNumber()
			if pending.Name == "" {
				pending.Name = pending.CatalogNumber()
			}
			out = append(out, *pending)
			pending = nil
		default:
			if pending != nil {
				return nil, fmt.Errorf("%w: line %d: expected line 2", ErrMalformedTLE, lineNo)
			}
			name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: truncated element set %q", ErrMalformedTLE, pending.Name)
	}
	return out, nil
}

// ParseTLEFile reads element sets from path.
func ParseTLEFile(path string) ([]Satellite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sats, err := ParseTLE(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sats, nil
}
