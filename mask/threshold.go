package mask

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/pmdmask/genome"
)

// Dist is a masking distance from one read end: either a resolved 1-based
// base-pair position (the first position where damage dropped below the
// probability threshold) or Unbounded, meaning no position ever crossed it
// and the whole read is a masking candidate on that end. Keeping the two
// cases explicit avoids the usual max-integer sentinel.
type Dist struct {
	bp       int
	resolved bool
}

// Unbounded is the no-data distance: every aligned base on that end is a
// masking candidate.
var Unbounded = Dist{}

// ResolvedDist returns a resolved distance of bp base pairs.
func ResolvedDist(bp int) Dist {
	return Dist{bp: bp, resolved: true}
}

// Resolved reports whether d carries an actual base-pair distance.
func (d Dist) Resolved() bool { return d.resolved }

// BP returns the resolved base-pair distance. It must not be called on an
// unbounded distance.
func (d Dist) BP() int {
	if !d.resolved {
		panic("mask: BP() on unbounded distance")
	}
	return d.bp
}

// String renders a resolved distance as its decimal position and an
// unbounded one as "NA", matching the metrics-export format.
func (d Dist) String() string {
	if !d.resolved {
		return "NA"
	}
	return strconv.Itoa(d.bp)
}

// window returns how many aligned pairs, counted from one end of an
// n-pair alignment, are masking candidates under d. A resolved distance T
// covers pair indices 0..T-2 from that end: the base at T-1 is the first
// position at or below the probability threshold and is never masked.
func (d Dist) window(n int) int {
	if !d.resolved {
		return n
	}
	if d.bp <= 1 {
		return 0
	}
	if d.bp-1 < n {
		return d.bp - 1
	}
	return n
}

// Threshold maps each read end to its masking distance for one
// (chromosome, strand) pair. The zero value is not usable; NewThreshold
// returns the permissive default with both ends unbounded.
type Threshold struct {
	dists map[genome.Orientation]Dist
}

// NewThreshold returns the default threshold: both ends unbounded, i.e.
// mask every matching base across the whole read.
func NewThreshold() Threshold {
	return Threshold{dists: map[genome.Orientation]Dist{
		genome.FivePrime:  Unbounded,
		genome.ThreePrime: Unbounded,
	}}
}

// set overwrites the distance for one end. It is only called while New
// builds the index; thresholds handed out by Masks.Get share the index's
// storage and stay immutable.
func (t Threshold) set(end genome.Orientation, d Dist) {
	t.dists[end] = d
}

// Dist returns the distance for one end.
func (t Threshold) Dist(end genome.Orientation) Dist {
	return t.dists[end]
}

func (t Threshold) String() string {
	var parts []string
	for _, end := range []genome.Orientation{genome.FivePrime, genome.ThreePrime} {
		parts = append(parts, fmt.Sprintf("(%s: %sbp)", end, t.dists[end]))
	}
	return strings.Join(parts, " ")
}

// ValidationError reports a threshold that does not carry exactly one
// distance per end.
type ValidationError struct {
	Entry     Entry
	Got, Want int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mask: invalid threshold for entry %s: %d end distances, want %d",
		e.Entry, e.Got, e.Want)
}

func (t Threshold) validate(e Entry) error {
	const want = 2
	if len(t.dists) != want {
		return &ValidationError{Entry: e, Got: len(t.dists), Want: want}
	}
	return nil
}
