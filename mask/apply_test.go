package mask

import (
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/pmdmask/genome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scenarioRef  = "GTACCTAAAAAATCCCAAACATATAACTGAACTCCTCACACCCAATTGGACGGGGGGGGC"
	scenarioRead = "GTACCTAAAAAATCCCAAACATATAACTGAACTCCTCACACCCAATTGGACCAATCTATC"
)

// threshold builds a Threshold with explicit per-end distances.
func threshold(d5, d3 Dist) Threshold {
	th := NewThreshold()
	th.set(genome.FivePrime, d5)
	th.set(genome.ThreePrime, d3)
	return th
}

func applyTo(t *testing.T, rec *sam.Record, ref string, th Threshold) (string, []byte) {
	t.Helper()
	var m Masker
	seq, qual, err := m.Apply(rec, []byte(ref), th)
	require.NoError(t, err)
	return string(seq), qual
}

func TestApplyFullMatchAtReadLength(t *testing.T) {
	// Threshold equal to the read length on both ends: the candidate
	// windows cover everything except the last base from the 5' side and
	// the first base from the 3' side.
	require.Equal(t, len(scenarioRef), len(scenarioRead))
	n := len(scenarioRead)
	rec := newRecord(t, 100, "60M", scenarioRead)

	seq, qual := applyTo(t, rec, scenarioRef, threshold(ResolvedDist(n), ResolvedDist(n)))

	assert.Equal(t, byte('G'), seq[0], "first base is outside the 3p window")
	assert.Equal(t, byte('C'), seq[n-1], "last base is outside the 5p window")
	for i := 1; i < n-1; i++ {
		switch scenarioRef[i] {
		case 'C', 'G':
			assert.Equal(t, byte('N'), seq[i], "position %d over ref %c", i, scenarioRef[i])
			assert.Equal(t, byte(0), qual[i], "position %d", i)
		default:
			assert.Equal(t, scenarioRead[i], seq[i], "position %d", i)
			assert.Equal(t, byte(37), qual[i], "position %d", i)
		}
	}
}

func TestApplyThresholdBeyondLength(t *testing.T) {
	// Thresholds past the read length cover every aligned pair on both
	// ends: every base over a reference C or G is masked.
	n := len(scenarioRead)
	rec := newRecord(t, 100, "60M", scenarioRead)

	seq, qual := applyTo(t, rec, scenarioRef, threshold(ResolvedDist(n+1), ResolvedDist(n+1)))

	for i := 0; i < n; i++ {
		if scenarioRef[i] == 'C' || scenarioRef[i] == 'G' {
			assert.Equal(t, byte('N'), seq[i], "position %d", i)
			assert.Equal(t, byte(0), qual[i], "position %d", i)
		} else {
			assert.Equal(t, scenarioRead[i], seq[i], "position %d", i)
			assert.Equal(t, byte(37), qual[i], "position %d", i)
		}
	}
}

func TestApplyAllGReference(t *testing.T) {
	ref := strings.Repeat("G", 60)
	read := strings.Repeat("A", 60)

	// Threshold 1: empty candidate ranges, nothing masked.
	rec := newRecord(t, 0, "60M", read)
	seq, qual := applyTo(t, rec, ref, threshold(ResolvedDist(1), ResolvedDist(1)))
	assert.Equal(t, read, seq)
	for i := range qual {
		assert.Equal(t, byte(37), qual[i])
	}

	// Threshold 61: the 3p window spans the entire read, so every base
	// over the all-G reference is masked.
	rec = newRecord(t, 0, "60M", read)
	seq, qual = applyTo(t, rec, ref, threshold(ResolvedDist(61), ResolvedDist(61)))
	assert.Equal(t, strings.Repeat("N", 60), seq)
	for i := range qual {
		assert.Equal(t, byte(0), qual[i])
	}
}

func TestApplyBoundaryExclusivity(t *testing.T) {
	// The base at index T-1 from an end is never masked by that end's
	// pass, for any T >= 2 and any reference content.
	const n = 10
	refC := strings.Repeat("C", n)
	refG := strings.Repeat("G", n)
	read := strings.Repeat("A", n)

	for T := 2; T <= n; T++ {
		rec := newRecord(t, 0, "10M", read)
		seq, _ := applyTo(t, rec, refC, threshold(ResolvedDist(T), ResolvedDist(1)))
		for i := 0; i < n; i++ {
			want := byte('A')
			if i <= T-2 {
				want = 'N'
			}
			assert.Equal(t, want, seq[i], "5p threshold %d position %d", T, i)
		}

		rec = newRecord(t, 0, "10M", read)
		seq, _ = applyTo(t, rec, refG, threshold(ResolvedDist(1), ResolvedDist(T)))
		for i := 0; i < n; i++ {
			want := byte('A')
			if i >= n-(T-1) {
				want = 'N'
			}
			assert.Equal(t, want, seq[i], "3p threshold %d position %d", T, i)
		}
	}
}

func TestApplyEmptyRange(t *testing.T) {
	ref := "CGCGCGCG"
	read := "AAAAAAAA"
	for _, T := range []int{0, 1} {
		rec := newRecord(t, 0, "8M", read)
		seq, qual := applyTo(t, rec, ref, threshold(ResolvedDist(T), ResolvedDist(T)))
		assert.Equal(t, read, seq, "threshold %d", T)
		for i := range qual {
			assert.Equal(t, byte(37), qual[i])
		}
	}
}

func TestApplyUnboundedDefault(t *testing.T) {
	// The default threshold (both ends unbounded) masks every matching
	// base across the whole read: this is the fallback for reads whose
	// (chromosome, strand) pair has no table entry.
	ref := "CAGTCGAC"
	read := "TTTTTTTT"
	rec := newRecord(t, 0, "8M", read)
	seq, _ := applyTo(t, rec, ref, NewThreshold())
	assert.Equal(t, "NTNTNNAN", seq)
}

func TestApplyIdempotent(t *testing.T) {
	rec := newRecord(t, 100, "60M", scenarioRead)
	th := threshold(ResolvedDist(20), ResolvedDist(20))
	seq1, qual1 := applyTo(t, rec, scenarioRef, th)

	rec2 := newRecord(t, 100, "60M", seq1)
	rec2.Qual = append([]byte(nil), qual1...)
	seq2, qual2 := applyTo(t, rec2, scenarioRef, th)

	assert.Equal(t, seq1, seq2)
	assert.Equal(t, qual1, qual2)
}

func TestApplyInsertion(t *testing.T) {
	// The two inserted bases have no reference counterpart and are never
	// masked; the bases after the insertion are compared against the
	// reference positions their aligned pairs name, not their raw
	// offsets.
	rec := newRecord(t, 0, "4M2I2M", "AACCGGTT")
	seq, _ := applyTo(t, rec, "CCCCCC", threshold(Unbounded, ResolvedDist(1)))
	assert.Equal(t, "NNNNGGNN", seq)
}

func TestApplyDeletion(t *testing.T) {
	rec := newRecord(t, 0, "2M2D2M", "AAAA")
	seq, _ := applyTo(t, rec, "GCCCCG", threshold(Unbounded, ResolvedDist(1)))
	assert.Equal(t, "ANNA", seq)
}

func TestApplySoftClip(t *testing.T) {
	// Soft-clipped bases are not aligned to the reference window and stay
	// untouched.
	rec := newRecord(t, 0, "2S4M", "TTAACC")
	seq, _ := applyTo(t, rec, "CCCC", threshold(Unbounded, ResolvedDist(1)))
	assert.Equal(t, "TTNNNN", seq)
}

func TestApplyRefOutOfRangeMapped(t *testing.T) {
	// The reference window is shorter than the aligned extent: fatal for
	// a mapped read.
	rec := newRecord(t, 0, "4M", "AAAA")
	var m Masker
	_, _, err := m.Apply(rec, []byte("CC"), threshold(Unbounded, ResolvedDist(1)))
	require.Error(t, err)
	oor, ok := err.(*RefOutOfRangeError)
	require.True(t, ok, "want *RefOutOfRangeError, got %T: %v", err, err)
	assert.Equal(t, Entry{Chrom: "chr1", Strand: genome.Forward}, oor.Entry)
	assert.Equal(t, genome.FivePrime, oor.End)
	assert.Equal(t, 2, oor.RefIdx)
	assert.Equal(t, 2, oor.Window)
}

func TestApplyRefOutOfRangeUnmapped(t *testing.T) {
	// The same condition on an unmapped read is a warning: the rest of
	// that end stays unmasked and processing continues.
	rec := newRecord(t, 0, "4M", "AAAA")
	rec.Flags |= sam.Unmapped
	var m Masker
	seq, qual, err := m.Apply(rec, []byte("CC"), threshold(Unbounded, ResolvedDist(1)))
	require.NoError(t, err)
	assert.Equal(t, "NNAA", string(seq))
	assert.Equal(t, []byte{0, 0, 37, 37}, qual)
}

func TestApplyQueryPastReadLength(t *testing.T) {
	// A CIGAR longer than SEQ stops the scan instead of indexing past the
	// read.
	rec := &sam.Record{
		Name:  "funky",
		Ref:   testRef,
		Pos:   0,
		Cigar: mustCigar(t, "4M"),
		Seq:   sam.NewSeq([]byte("AA")),
		Qual:  []byte{37, 37},
	}
	var m Masker
	seq, qual, err := m.Apply(rec, []byte("CCCC"), threshold(Unbounded, ResolvedDist(1)))
	require.NoError(t, err)
	assert.Equal(t, "NN", string(seq))
	assert.Equal(t, []byte{0, 0}, qual)
}

func TestApplyScratchReuse(t *testing.T) {
	// One Masker across several reads: outputs are valid until the next
	// Apply, and reuse does not leak state between reads.
	var m Masker
	rec := newRecord(t, 0, "4M", "AAAA")
	seq, _, err := m.Apply(rec, []byte("CCCC"), NewThreshold())
	require.NoError(t, err)
	require.Equal(t, "NNNN", string(seq))

	rec2 := newRecord(t, 0, "2M", "TT")
	seq2, qual2, err := m.Apply(rec2, []byte("AA"), NewThreshold())
	require.NoError(t, err)
	assert.Equal(t, "TT", string(seq2))
	assert.Equal(t, []byte{37, 37}, qual2)
}
