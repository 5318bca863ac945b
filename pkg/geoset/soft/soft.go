// Package soft splits flat annotation files in which several logical
// tables are concatenated under bracket-delimited section labels, e.g.
//
//	[Heading]
//	Illumina Inc.
//	[Probes]
//	Probe_Id	Definition
//	ILMN_1651228	Homo sapiens ribosomal protein
//
// Each section becomes an independent table. The section labeled
// "Heading" is metadata without a header row and parses positionally;
// every other section treats its first line as tab-separated column
// names.
package soft

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/geoset/pkg/geoset/table"
)

// ErrMalformedDocument reports a section whose body cannot form a table.
var ErrMalformedDocument = errors.New("malformed sectioned document")

// HeadingLabel is the one section parsed without a header row.
const HeadingLabel = "Heading"

// Document is the ordered result of a split: labels in the order their
// sections first appear, each mapped to its parsed table.
type Document struct {
	labels []string
	tables map[string]*table.Table
}

// Labels returns section labels in document order.
func (d *Document) Labels() []string { return d.labels }

// Table returns the table for a label, or nil if the label is absent.
func (d *Document) Table(label string) *table.Table { return d.tables[label] }

// Len returns the number of sections.
func (d *Document) Len() int { return len(d.labels) }

func (d *Document) add(label string, t *table.Table) {
	if _, seen := d.tables[label]; !seen {
		d.labels = append(d.labels, label)
	}
	d.tables[label] = t
}

// Split scans the input once and returns one table per section. Lines
// before the first label are discarded. The final section is finalized
// when input ends; there is no closing delimiter.
func Split(r io.Reader) (*Document, error) {
	doc := &Document{tables: make(map[string]*table.Table)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var label string
	var buf []string
	active := false

	flush := func() error {
		t, err := parseSection(label, buf)
		if err != nil {
			return err
		}
		doc.add(label, t)
		return nil
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, "[") {
			if active {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			label = strings.Trim(line, "[]")
			buf = buf[:0]
			active = true
			continue
		}
		if active {
			buf = append(buf, line)
		}
		// Pre-label preamble is dropped.
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if active {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func parseSection(label string, lines []string) (*table.Table, error) {
	body := strings.Join(lines, "\n")
	headerless := label == HeadingLabel

	t, err := table.ReadTSV(strings.NewReader(body), headerless)
	if err != nil {
		return nil, fmt.Errorf("%w: section %q: %v", ErrMalformedDocument, label, err)
	}
	if !headerless && t.Columns == nil {
		return nil, fmt.Errorf("%w: section %q has no header line", ErrMalformedDocument, label)
	}
	return t, nil
}
