/*
Given a BAM, a reference FASTA, and a mapDamage misincorporation table
computed from the same BAM, pmd-mask hard-masks the bases most likely to
carry ancient-DNA post-mortem damage: read bases aligned to a reference C
near the 5' end, and to a reference G near the 3' end, are rewritten to 'N'
with base quality 0.

How far masking extends into each read is resolved per (chromosome, strand)
pair from the misincorporation table: for every (chromosome, end, strand)
group, pmd-mask selects the first position at which the observed C>T (5')
or G>A (3') frequency drops to or below -threshold (default 1%). Groups
that never reach the threshold, and groups whose frequencies are abnormal
(NaN, infinite, negative), conservatively mask the whole read on that end.

Masking walks each read's indel-aware aligned (query, reference) pairs, so
insertions and deletions do not shift the compared reference bases.

Sample usage:
  pmd-mask \
      -misincorporation misincorporation.txt \
      -output masked.bam \
      my.bam \
      ref.fa
*/
package main
