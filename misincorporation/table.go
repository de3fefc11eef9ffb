package misincorporation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/pmdmask/genome"
)

// ParseError reports a malformed misincorporation table row. Line is
// 1-based and counts every line in the input, comments and header included.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("misincorporation: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Table is the ordered list of records accepted by Read: at most one per
// (chromosome, end, strand) group, each marking the first position at which
// that group's damage frequency reached the probability threshold.
type Table struct {
	recs []Record
}

// Len returns the number of accepted records.
func (t *Table) Len() int { return len(t.recs) }

// Records returns the accepted records in input order. The returned slice
// is owned by the table; callers must not modify it.
func (t *Table) Records() []Record { return t.recs }

// requiredCols are the misincorporation.txt columns the model consumes.
// mapDamage emits ~30 columns; the rest are ignored.
var requiredCols = []string{"Chr", "End", "Std", "Pos", "C", "G", "C>T", "G>A"}

type group struct {
	chrom  string
	end    genome.Orientation
	strand genome.Strand
}

// Read parses a tab-separated, '#'-commented, header-bearing
// misincorporation table and keeps, per (Chr, End, Std) group, the first
// row whose target frequency is at or below threshold. Groups that never
// reach the threshold contribute no record; masking later falls back to
// the unbounded default for them.
//
// Contract: rows of a given group must arrive in ascending Pos order, as
// mapDamage writes them. A Pos regression within a contiguous group run is
// rejected with a ParseError rather than silently producing an arbitrary
// selection. Groups may interleave; a group reappearing after rows of
// another group still contributes at most its first crossing.
func Read(r io.Reader, threshold float64) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1024*1024)

	var (
		cols     map[string]int
		accepted map[group]struct{}
		prev     group
		prevPos  int
		havePrev bool
		recs     []Record
	)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if cols == nil {
			var err error
			if cols, err = indexHeader(fields); err != nil {
				return nil, &ParseError{Line: line, Err: err}
			}
			continue
		}
		rec, err := parseRow(fields, cols)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		g := group{chrom: rec.Chrom, end: rec.End, strand: rec.Strand}
		if havePrev && g == prev && rec.Pos < prevPos {
			return nil, &ParseError{Line: line, Err: fmt.Errorf(
				"position %d out of order within group %s %s %s (previous row was position %d)",
				rec.Pos, g.chrom, g.end, g.strand, prevPos)}
		}
		prev, prevPos, havePrev = g, rec.Pos, true

		// Once a group's first crossing is accepted, the rest of that
		// group's rows are irrelevant, even if the group reappears after
		// rows of another group.
		if _, done := accepted[g]; done {
			continue
		}
		if rec.TargetFreq() <= threshold {
			recs = append(recs, rec)
			if accepted == nil {
				accepted = make(map[group]struct{})
			}
			accepted[g] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cols == nil {
		if line == 0 {
			line = 1
		}
		return nil, &ParseError{Line: line, Err: fmt.Errorf("missing header row")}
	}
	return &Table{recs: recs}, nil
}

// ReadPath opens path (possibly gzip/bzip2/zstd compressed, possibly on S3)
// and parses it with Read.
func ReadPath(ctx context.Context, path string, threshold float64) (tbl *Table, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return Read(reader, threshold)
}

func indexHeader(fields []string) (map[string]int, error) {
	cols := make(map[string]int, len(fields))
	for i, name := range fields {
		cols[name] = i
	}
	for _, name := range requiredCols {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("header is missing required column %q", name)
		}
	}
	return cols, nil
}

func parseRow(fields []string, cols map[string]int) (Record, error) {
	var rec Record
	get := func(name string) (string, error) {
		i := cols[name]
		if i >= len(fields) {
			return "", fmt.Errorf("row has %d fields, no %q column (field %d)", len(fields), name, i+1)
		}
		return fields[i], nil
	}
	getInt := func(name string) (int, error) {
		s, err := get(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("column %q: %v", name, err)
		}
		return v, nil
	}
	var err error
	if rec.Chrom, err = get("Chr"); err != nil {
		return rec, err
	}
	var tok string
	if tok, err = get("End"); err != nil {
		return rec, err
	}
	if rec.End, err = genome.ParseOrientation(tok); err != nil {
		return rec, err
	}
	if tok, err = get("Std"); err != nil {
		return rec, err
	}
	if rec.Strand, err = genome.ParseStrand(tok); err != nil {
		return rec, err
	}
	if rec.Pos, err = getInt("Pos"); err != nil {
		return rec, err
	}
	if rec.CCount, err = getInt("C"); err != nil {
		return rec, err
	}
	if rec.GCount, err = getInt("G"); err != nil {
		return rec, err
	}
	if rec.CtoT, err = getInt("C>T"); err != nil {
		return rec, err
	}
	if rec.GtoA, err = getInt("G>A"); err != nil {
		return rec, err
	}
	return rec, nil
}

// RemoveAbnormal drops every record whose target frequency is NaN,
// infinite, or negative, and returns the dropped records for diagnostic
// reporting. Abnormal rows are never an error: the affected (chromosome,
// strand, end) slot simply falls back to the unbounded masking default.
func (t *Table) RemoveAbnormal() []Record {
	var abnormal []Record
	kept := t.recs[:0]
	for _, rec := range t.recs {
		f := rec.TargetFreq()
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			abnormal = append(abnormal, rec)
			continue
		}
		kept = append(kept, rec)
	}
	t.recs = kept
	return abnormal
}
