package lda

import "math"

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// logLikelihood returns the joint log p(w, z) of the current assignments
// under the symmetric Dirichlet priors. Empty documents contribute nothing.
func (c *chain) logLikelihood() float64 {
	k, v := float64(c.k), float64(c.v)

	ll := k * lgamma(v*c.eta)
	for t := 0; t < c.k; t++ {
		for w := 0; w < c.v; w++ {
			if n := c.topicTerm[t][w]; n > 0 {
				ll += lgamma(float64(n)+c.eta) - lgamma(c.eta)
			}
		}
		ll -= lgamma(float64(c.topic[t]) + v*c.eta)
	}

	docPrior := lgamma(k*c.alpha) - k*lgamma(c.alpha)
	for d, words := range c.docs {
		if len(words) == 0 {
			continue
		}
		ll += docPrior
		for t := 0; t < c.k; t++ {
			ll += lgamma(float64(c.docTopic[d][t]) + c.alpha)
		}
		ll -= lgamma(float64(len(words)) + k*c.alpha)
	}
	return ll
}
