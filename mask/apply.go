package mask

import (
	"fmt"

	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/bio/biosimd"
	gbam "github.com/grailbio/bio/encoding/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/pmdmask/genome"
)

// maskedBase and maskedQual are the hard-mask replacements: an unknown
// base with zero confidence.
const (
	maskedBase = 'N'
	maskedQual = 0
)

// RefOutOfRangeError reports an aligned reference index that fell outside
// the reference window supplied for a read. For mapped reads this aborts
// the run; for unmapped reads the caller downgrades it to a warning.
type RefOutOfRangeError struct {
	Entry  Entry
	End    genome.Orientation
	RefIdx int
	Window int
}

func (e *RefOutOfRangeError) Error() string {
	return fmt.Sprintf("mask: %s: %s pass: reference index %d outside the %d-base reference window",
		e.Entry, e.End, e.RefIdx, e.Window)
}

// Masker hard-masks one read at a time. It owns reusable sequence, quality
// and aligned-pair scratch buffers, so a Masker must not be shared between
// goroutines; give each worker its own.
type Masker struct {
	seq   []byte
	qual  []byte
	pairs []Pair
}

// Apply hard-masks rec's PMD-suspect bases and returns the rewritten
// sequence and quality buffers. ref is the uppercase reference window
// spanning the read's aligned extent, indexed from the alignment start.
// th supplies the per-end distances; resolve it with Masks.Get or use
// NewThreshold() for reads with no entry.
//
// The 5' pass masks read bases aligned to a reference C within the 5'
// window; the 3' pass masks bases aligned to a reference G within the
// trailing window. All other record fields are untouched. The returned
// slices alias the Masker's scratch buffers and are valid until the next
// Apply call.
func (m *Masker) Apply(rec *sam.Record, ref []byte, th Threshold) ([]byte, []byte, error) {
	lSeq := rec.Seq.Length
	if cap(m.seq) < lSeq {
		m.seq = make([]byte, 0, lSeq)
	}
	gunsafe.ExtendBytes(&m.seq, lSeq)
	if lSeq != 0 {
		biosimd.UnpackAndReplaceSeq(m.seq, gbam.UnsafeDoubletsToBytes(rec.Seq.Seq), &seq8ToASCIITable)
	}
	m.qual = append(m.qual[:0], rec.Qual...)
	m.pairs = AlignedPairs(rec, m.pairs[:0])
	pairs := m.pairs
	unmapped := rec.Flags&sam.Unmapped != 0

	w5 := th.Dist(genome.FivePrime).window(len(pairs))
	if err := m.maskEnd(pairs[:w5], ref, 'C', genome.FivePrime, rec, unmapped); err != nil {
		return nil, nil, err
	}
	w3 := th.Dist(genome.ThreePrime).window(len(pairs))
	if err := m.maskEnd(pairs[len(pairs)-w3:], ref, 'G', genome.ThreePrime, rec, unmapped); err != nil {
		return nil, nil, err
	}
	return m.seq, m.qual, nil
}

// maskEnd runs one masking pass over the candidate pairs of one end. The
// scan stops early once a query index runs past the read length.
func (m *Masker) maskEnd(candidates []Pair, ref []byte, target byte, end genome.Orientation, rec *sam.Record, unmapped bool) error {
	for _, p := range candidates {
		if p.Query >= len(m.seq) {
			break
		}
		if p.Ref < 0 || p.Ref >= len(ref) {
			if unmapped {
				log.Error.Printf("mask: unmapped record %s: %s pass: reference index %d outside the %d-base window; leaving this end unmasked",
					rec.Name, end, p.Ref, len(ref))
				return nil
			}
			return &RefOutOfRangeError{Entry: RecordEntry(rec), End: end, RefIdx: p.Ref, Window: len(ref)}
		}
		if ref[p.Ref] == target {
			m.seq[p.Query] = maskedBase
			m.qual[p.Query] = maskedQual
		}
	}
	return nil
}

// seq8ToASCIITable is the .bam seq nibble -> ASCII mapping.
var seq8ToASCIITable = biosimd.MakeNibbleLookupTable([16]byte{'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'})
