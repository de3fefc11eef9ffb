// Package mask implements PMD hard-masking: a per-(chromosome, strand)
// index of masking thresholds derived from a misincorporation table, and
// the per-read engine that rewrites suspect bases near read ends to 'N'
// with zero quality.
package mask

import (
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/pmdmask/genome"
)

// Entry identifies one masking policy: the (chromosome, strand) pair a
// read resolves its thresholds under.
type Entry struct {
	Chrom  string
	Strand genome.Strand
}

// RecordEntry derives the Entry for a mapped record.
func RecordEntry(rec *sam.Record) Entry {
	return Entry{Chrom: rec.Ref.Name(), Strand: genome.RecordStrand(rec)}
}

func (e Entry) String() string {
	return e.Chrom + " " + e.Strand.String()
}
