package mask

import (
	"github.com/grailbio/hts/sam"
)

// Pair is one indel-aware alignment column: the index of a read base and
// the index of the reference base it is aligned to. Query is relative to
// the start of SEQ, Ref to the record's alignment start position.
type Pair struct {
	Query int
	Ref   int
}

// AlignedPairs appends rec's aligned (query, reference) index pairs to buf
// and returns the extended slice. Only CIGAR operations that consume both
// the query and the reference (M, =, X) emit pairs; insertions and soft
// clips advance the query cursor, deletions and skips advance the
// reference cursor, and hard clips and padding advance neither. Walking
// these pairs instead of raw sequence offsets is what keeps masking
// aligned across indels.
func AlignedPairs(rec *sam.Record, buf []Pair) []Pair {
	q, r := 0, 0
	for _, co := range rec.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				buf = append(buf, Pair{Query: q + i, Ref: r + i})
			}
			q += n
			r += n
		case sam.CigarInsertion, sam.CigarSoftClipped:
			q += n
		case sam.CigarDeletion, sam.CigarSkipped:
			r += n
		}
	}
	return buf
}
