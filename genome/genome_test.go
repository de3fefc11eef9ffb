package genome_test

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/pmdmask/genome"
	"github.com/stretchr/testify/assert"
)

func TestParseStrand(t *testing.T) {
	tests := []struct {
		tok  string
		want genome.Strand
		ok   bool
	}{
		{"+", genome.Forward, true},
		{"-", genome.Reverse, true},
		{"*", 0, false},
		{"", 0, false},
		{"+-", 0, false},
		{"forward", 0, false},
	}
	for _, tt := range tests {
		got, err := genome.ParseStrand(tt.tok)
		if !tt.ok {
			assert.Error(t, err, "token %q", tt.tok)
			continue
		}
		assert.NoError(t, err, "token %q", tt.tok)
		assert.Equal(t, tt.want, got, "token %q", tt.tok)
	}
}

func TestParseOrientation(t *testing.T) {
	tests := []struct {
		tok  string
		want genome.Orientation
		ok   bool
	}{
		{"5p", genome.FivePrime, true},
		{"3p", genome.ThreePrime, true},
		{"5P", 0, false},
		{"3", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := genome.ParseOrientation(tt.tok)
		if !tt.ok {
			assert.Error(t, err, "token %q", tt.tok)
			continue
		}
		assert.NoError(t, err, "token %q", tt.tok)
		assert.Equal(t, tt.want, got, "token %q", tt.tok)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "+", genome.Forward.String())
	assert.Equal(t, "-", genome.Reverse.String())
	assert.Equal(t, "5p", genome.FivePrime.String())
	assert.Equal(t, "3p", genome.ThreePrime.String())
}

func TestRecordStrand(t *testing.T) {
	rec := &sam.Record{Flags: sam.Paired}
	assert.Equal(t, genome.Forward, genome.RecordStrand(rec))
	rec.Flags |= sam.Reverse
	assert.Equal(t, genome.Reverse, genome.RecordStrand(rec))
}
