package file

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ReadList reads a location list from path. The path is opened like any
// other Local, so "-" reads stdin and ".gz" lists are decompressed.
func ReadList(path string) ([]string, error) {
	rc, err := NewLocal(path).Open(context.Background())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseList(rc)
}

// ParseList returns one location per non-blank line. Lines whose first
// non-blank character is '#' are comments. A location listed twice is kept
// once, at its first position, so no source is sampled twice.
func ParseList(r io.Reader) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		loc := strings.TrimSpace(sc.Text())
		if loc == "" || loc[0] == '#' {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
