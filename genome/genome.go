// Package genome holds the small coordinate vocabulary shared by the
// misincorporation table and the masking engine: the strand a record aligns
// to, and the read end (5' or 3') a relative position is measured from.
package genome

import (
	"fmt"

	"github.com/grailbio/hts/sam"
)

// Strand is the alignment strand of a read.
type Strand byte

const (
	// Forward is the '+' strand.
	Forward Strand = iota
	// Reverse is the '-' strand.
	Reverse
)

var strandToASCII = [...]string{"+", "-"}

// String returns the mapDamage text form of s, "+" or "-".
func (s Strand) String() string {
	return strandToASCII[s]
}

// ParseStrand parses a "+"/"-" strand token.
func ParseStrand(tok string) (Strand, error) {
	switch tok {
	case "+":
		return Forward, nil
	case "-":
		return Reverse, nil
	}
	return Forward, fmt.Errorf("unrecognized strand %q (want \"+\" or \"-\")", tok)
}

// RecordStrand returns the strand rec is aligned to, from its Reverse FLAG
// bit.
func RecordStrand(rec *sam.Record) Strand {
	if rec.Flags&sam.Reverse != 0 {
		return Reverse
	}
	return Forward
}

// Orientation is the read end a relative base-pair distance is measured
// from. C>T damage accumulates at the 5' end, G>A at the 3' end.
type Orientation byte

const (
	// FivePrime is the 5' end of a read, "5p" in a misincorporation table.
	FivePrime Orientation = iota
	// ThreePrime is the 3' end of a read, "3p" in a misincorporation table.
	ThreePrime
)

var orientationToASCII = [...]string{"5p", "3p"}

// String returns the mapDamage text form of o, "5p" or "3p".
func (o Orientation) String() string {
	return orientationToASCII[o]
}

// ParseOrientation parses a "5p"/"3p" end token.
func ParseOrientation(tok string) (Orientation, error) {
	switch tok {
	case "5p":
		return FivePrime, nil
	case "3p":
		return ThreePrime, nil
	}
	return FivePrime, fmt.Errorf("unrecognized end %q (want \"5p\" or \"3p\")", tok)
}
