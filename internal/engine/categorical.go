package engine

import "math/rand"

// Categorical samples from a discrete distribution in O(1) per draw using
// the Vose alias method: the unit interval is cut into N equal buckets, each
// holding at most two outcomes and a threshold between them.
type Categorical struct {
	buckets []aliasBucket
	// uniform is the fallback when the weights are empty or sum to zero.
	uniform int
}

type aliasBucket struct {
	small     int
	large     int
	threshold float64
}

// NewCategorical builds the alias table in O(n). Weights must be
// non-negative; if they are empty or all zero the sampler degrades to a
// uniform draw over the indices.
func NewCategorical(weights []float64) *Categorical {
	n := len(weights)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if n == 0 || sum <= 0 {
		return &Categorical{uniform: n}
	}

	probs := make([]float64, n)
	for i, w := range weights {
		probs[i] = w / sum
	}

	// Two stacks sharing one backing array: small grows from the front,
	// large from the back.
	type segment struct {
		p   float64
		idx int
	}
	segments := make([]segment, n)
	smallTop, largeTop := 0, n

	for i, p := range probs {
		if p < 1.0/float64(n) {
			segments[smallTop] = segment{p, i}
			smallTop++
		} else {
			largeTop--
			segments[largeTop] = segment{p, i}
		}
	}

	c := &Categorical{buckets: make([]aliasBucket, 0, n)}
	i := 0
	for smallTop > 0 && largeTop < n {
		smallTop--
		s := segments[smallTop]
		l := segments[largeTop]
		largeTop++

		c.buckets = append(c.buckets, aliasBucket{
			small:     s.idx,
			large:     l.idx,
			threshold: s.p + float64(i)/float64(n),
		})

		// The large segment donates what the small one lacked.
		leftOver := s.p + l.p - 1.0/float64(n)
		if leftOver < 1.0/float64(n) {
			segments[smallTop] = segment{leftOver, l.idx}
			smallTop++
		} else {
			largeTop--
			segments[largeTop] = segment{leftOver, l.idx}
		}
		i++
	}

	// Leftover singletons become pure buckets; the threshold is irrelevant
	// because both outcomes coincide.
	for largeTop < n {
		l := segments[largeTop]
		largeTop++
		c.buckets = append(c.buckets, aliasBucket{small: l.idx, large: l.idx})
	}
	// Reached only through floating-point residue.
	for smallTop > 0 {
		smallTop--
		s := segments[smallTop]
		c.buckets = append(c.buckets, aliasBucket{small: s.idx, large: s.idx})
	}

	return c
}

// Sample draws one index.
func (c *Categorical) Sample(rng *rand.Rand) int {
	if c.buckets == nil {
		if c.uniform == 0 {
			return 0
		}
		return rng.Intn(c.uniform)
	}

	u := rng.Float64()
	idx := int(u * float64(len(c.buckets)))
	if idx >= len(c.buckets) {
		idx = len(c.buckets) - 1
	}

	b := c.buckets[idx]
	if u < b.threshold {
		return b.small
	}
	return b.large
}

// N returns the number of outcomes.
func (c *Categorical) N() int {
	if c.buckets == nil {
		return c.uniform
	}
	return len(c.buckets)
}
