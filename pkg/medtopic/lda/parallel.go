package lda

import (
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
)

// parallelSweep is an approximate distributed sweep: documents are split
// into contiguous shards, each shard samples against a private copy of the
// topic-term counts, and the per-shard deltas are merged in shard order
// once every shard has finished.
func (c *chain) parallelSweep(workers int, seed uint64, sweep int) *fault {
	n := len(c.docs)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		rng := rand.New(rand.NewPCG(seed, uint64(sweep)))
		return c.sweep(rng)
	}

	type shard struct {
		from, to  int
		topicTerm [][]int
		topic     []int
		fault     *fault
	}
	shards := make([]*shard, workers)
	size := (n + workers - 1) / workers
	for i := range shards {
		from := i * size
		to := min(from+size, n)
		if from > to {
			from = to
		}
		sh := &shard{from: from, to: to, topic: append([]int(nil), c.topic...)}
		sh.topicTerm = make([][]int, c.k)
		for t := range sh.topicTerm {
			sh.topicTerm[t] = append([]int(nil), c.topicTerm[t]...)
		}
		shards[i] = sh
	}

	var g errgroup.Group
	for i, sh := range shards {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(sweep)<<16|uint64(i)))
			sh.fault = c.sampleDocs(sh.from, sh.to, sh.topicTerm, sh.topic, make([]float64, c.k), rng)
			return nil
		})
	}
	_ = g.Wait()

	for _, sh := range shards {
		if sh.fault != nil {
			return sh.fault
		}
	}

	// global += local - global, applied shard by shard against the
	// counts every shard started from
	base := c.topicTerm
	baseTopic := c.topic
	merged := make([][]int, c.k)
	mergedTopic := append([]int(nil), baseTopic...)
	for t := range merged {
		merged[t] = append([]int(nil), base[t]...)
	}
	for _, sh := range shards {
		for t := 0; t < c.k; t++ {
			mergedTopic[t] += sh.topic[t] - baseTopic[t]
			row, local, orig := merged[t], sh.topicTerm[t], base[t]
			for w := range row {
				row[w] += local[w] - orig[w]
			}
		}
	}
	c.topicTerm = merged
	c.topic = mergedTopic
	return nil
}
