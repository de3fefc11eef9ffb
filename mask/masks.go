package mask

import (
	"io"
	"sort"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/pmdmask/genome"
	"github.com/grailbio/pmdmask/misincorporation"
)

// Masks is the per-(chromosome, strand) threshold index. It is built once
// from a sanitized misincorporation table and never mutated afterwards, so
// it may be shared by reference across any number of masking workers.
type Masks struct {
	index map[Entry]Threshold
}

// New folds every record of table into a threshold index. Each record
// overwrites only the slot for its own end, starting from the unbounded
// default pair, so a group with one surviving orientation keeps the
// conservative unbounded distance on the other.
func New(table *misincorporation.Table) (*Masks, error) {
	m := &Masks{index: make(map[Entry]Threshold, table.Len())}
	for _, rec := range table.Records() {
		entry := Entry{Chrom: rec.Chrom, Strand: rec.Strand}
		th, ok := m.index[entry]
		if !ok {
			th = NewThreshold()
			m.index[entry] = th
		}
		th.set(rec.End, ResolvedDist(rec.Pos))
	}
	for entry, th := range m.index {
		if err := th.validate(entry); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns the threshold for entry. Callers substitute NewThreshold()
// when the entry is absent. The returned threshold shares the index's
// storage and is read-only.
func (m *Masks) Get(entry Entry) (Threshold, bool) {
	th, ok := m.index[entry]
	return th, ok
}

// Len returns the number of indexed entries.
func (m *Masks) Len() int { return len(m.index) }

// Write exports the index as a TSV table, one row per entry sorted by
// chromosome then strand, with unresolved distances rendered as NA. This
// is a diagnostics format; nothing reads it back.
func (m *Masks) Write(w io.Writer) error {
	entries := make([]Entry, 0, len(m.index))
	for entry := range m.index {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Chrom != entries[j].Chrom {
			return entries[i].Chrom < entries[j].Chrom
		}
		return entries[i].Strand < entries[j].Strand
	})

	out := tsv.NewWriter(w)
	out.WriteString("Chr\tStd\t5p\t3p")
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, entry := range entries {
		th := m.index[entry]
		out.WriteString(entry.Chrom)
		out.WriteString(entry.Strand.String())
		out.WriteString(th.Dist(genome.FivePrime).String())
		out.WriteString(th.Dist(genome.ThreePrime).String())
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
