package mask

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bio/encoding/bamprovider"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// Process streams every record from provider in input order, hard-masks it
// under masks, and writes it to w. Output order matches input order
// exactly. Records with no reference or no CIGAR pass through unchanged;
// reads whose (chromosome, strand) pair has no threshold entry fall back
// to the unbounded default. The first error on a mapped read aborts the
// run, surfaced with the read's chromosome, strand, and position.
func Process(provider bamprovider.Provider, ref fasta.Fasta, masks *Masks, w *bam.Writer) error {
	shards, err := provider.GetFileShards()
	if err != nil {
		return err
	}
	p := processor{ref: ref, masks: masks, defaultTh: NewThreshold(), w: w}
	for _, shard := range shards {
		iter := provider.NewIterator(shard)
		for iter.Scan() {
			if err := p.record(iter.Record()); err != nil {
				_ = iter.Close()
				return err
			}
		}
		if err := iter.Close(); err != nil {
			return err
		}
	}
	return nil
}

type processor struct {
	ref       fasta.Fasta
	masks     *Masks
	defaultTh Threshold
	w         *bam.Writer

	masker Masker
	refBuf []byte
}

func (p *processor) record(rec *sam.Record) error {
	if rec.Ref == nil || len(rec.Cigar) == 0 {
		log.Debug.Printf("%s: no alignment, passing through unmasked", rec.Name)
		return p.w.Write(rec)
	}
	unmapped := rec.Flags&sam.Unmapped != 0

	entry := RecordEntry(rec)
	th, ok := p.masks.Get(entry)
	if !ok {
		log.Debug.Printf("%s: not found in threshold index, using default %s", entry, p.defaultTh)
		th = p.defaultTh
	}

	start, end := rec.Pos, rec.End()
	if end <= start {
		return p.w.Write(rec)
	}
	window, err := p.ref.Get(entry.Chrom, uint64(start), uint64(end))
	if err != nil {
		if unmapped {
			log.Error.Printf("unmapped record %s at %s:%d: %v; passing through unmasked",
				rec.Name, entry, rec.Pos, err)
			return p.w.Write(rec)
		}
		return errors.E(err, fmt.Sprintf("fetching reference window for %s at %s:%d", rec.Name, entry, rec.Pos))
	}
	p.refBuf = appendUpper(p.refBuf[:0], window)

	seq, qual, err := p.masker.Apply(rec, p.refBuf, th)
	if err != nil {
		return errors.E(err, fmt.Sprintf("record %s at %s:%d", rec.Name, entry, rec.Pos))
	}
	rec.Seq = sam.NewSeq(seq)
	rec.Qual = qual
	return p.w.Write(rec)
}

// appendUpper appends the ASCII-uppercased bytes of src to dst. FASTA
// files may carry soft-masked (lowercase) reference stretches; the engine
// compares against 'C' and 'G' only.
func appendUpper(dst []byte, src string) []byte {
	for i := 0; i < len(src); i++ {
		c := src[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		dst = append(dst, c)
	}
	return dst
}
