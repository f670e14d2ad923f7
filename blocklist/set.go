package blocklist

import (
	"bufio"
	"context"
	"io"
	"sort"
	"strings"
)

// ctxCheckEvery is how many lines are scanned between context checks.
const ctxCheckEvery = 1024

// maxLineSize bounds a single line of the source.
const maxLineSize = 1 << 20

// Set is an immutable collection of banned IP strings. The zero value is an
// empty set.
type Set struct {
	entries map[string]struct{}
}

// NewSet builds a Set from already normalized entries.
func NewSet(entries ...string) Set {
	m := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		m[e] = struct{}{}
	}
	return Set{entries: m}
}

// Contains reports whether ip is in the set. Comparison is plain string
// equality.
func (s Set) Contains(ip string) bool {
	_, ok := s.entries[ip]
	return ok
}

func (s Set) Len() int {
	return len(s.entries)
}

// Entries returns the members sorted, mostly for logs and tests.
func (s Set) Entries() []string {
	out := make([]string, 0, len(s.entries))
	for e := range s.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// ReadSet parses one entry per line, trimming surrounding whitespace. A blank
// line becomes the empty entry, which never matches a client IP.
func ReadSet(ctx context.Context, r io.Reader) (Set, error) {
	entries := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Set{}, err
			}
		}
		entries[strings.TrimSpace(scanner.Text())] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return Set{}, err
	}
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}
	return Set{entries: entries}, nil
}
