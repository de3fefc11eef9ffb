// Package misincorporation parses mapDamage-v2 misincorporation.txt tables
// and selects, for every (chromosome, end, strand) group, the first position
// at which the damage frequency drops to or below a probability threshold.
package misincorporation

import (
	"fmt"

	"github.com/grailbio/pmdmask/genome"
)

// Record is one row of a misincorporation table, restricted to the columns
// the masking model consumes: the C>T transition counts at the 5' end and
// the G>A transition counts at the 3' end.
type Record struct {
	Chrom  string
	End    genome.Orientation
	Strand genome.Strand
	// Pos is the 1-based distance from End, in base pairs.
	Pos int
	// CCount and GCount are the reference C and G bases observed at Pos
	// across all reads; CtoT and GtoA are the mismatches among them.
	CCount int
	GCount int
	CtoT   int
	GtoA   int
}

// CtoTFreq returns the observed C>T rate at this position, CtoT / CCount.
// The quotient is NaN when no C was observed.
func (r *Record) CtoTFreq() float64 {
	return float64(r.CtoT) / float64(r.CCount)
}

// GtoAFreq returns the observed G>A rate at this position, GtoA / GCount.
func (r *Record) GtoAFreq() float64 {
	return float64(r.GtoA) / float64(r.GCount)
}

// TargetFreq returns the frequency relevant to this record's end: C>T for
// 5p rows, G>A for 3p rows. The other transition is ignored entirely, so a
// degenerate count on the irrelevant side does not poison the record.
func (r *Record) TargetFreq() float64 {
	if r.End == genome.FivePrime {
		return r.CtoTFreq()
	}
	return r.GtoAFreq()
}

func (r *Record) String() string {
	return fmt.Sprintf("%s\t%s\t%s\tpos %d\tC %d\tG %d\tC>T %d\tG>A %d\tfreq %g",
		r.Chrom, r.End, r.Strand, r.Pos, r.CCount, r.GCount, r.CtoT, r.GtoA, r.TargetFreq())
}
