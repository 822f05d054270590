// Package specdoc locates track specification documents and extracts the
// unchecked checklist items they contain.
//
// A track with ID X lives in <tracks dir>/track-X/. Its primary document is
// spec.md; when that yields no unchecked items the plan.md next to it is
// consulted instead. Only the "- [ ] description" line pattern is recognised;
// no other markdown structure is interpreted.
package specdoc

import (
	"bufio"
	"io"
	"strings"
)

// uncheckedPrefix marks an open checklist item.
const uncheckedPrefix = "- [ ] "

// maxLineSize bounds a single document line.
const maxLineSize = 1 << 20

// ExtractChecklist returns the descriptions of every unchecked checklist item
// in r, in document order.
//
// Leading spaces and tabs are ignored so nested items count. The description
// is the rest of the line after "- [ ] ", trimmed of surrounding whitespace
// (a trailing \r from CRLF files included). Checked items ("- [x] ") never
// match, and items with an empty description are skipped. Duplicates are
// kept; deduplication happens against the ledger.
func ExtractChecklist(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	items := make([]string, 0)
	for scanner.Scan() {
		if desc, ok := ParseChecklistLine(scanner.Text()); ok {
			items = append(items, desc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ParseChecklistLine reports whether line is an unchecked checklist item and
// returns its description.
func ParseChecklistLine(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimLeft(line, " \t"), uncheckedPrefix)
	if !ok {
		return "", false
	}
	desc := strings.TrimSpace(rest)
	if desc == "" {
		return "", false
	}
	return desc, true
}
