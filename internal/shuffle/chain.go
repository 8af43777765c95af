package shuffle

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// DefaultWindowSize is the number of recent picks to remember for
// avoiding repetition
const DefaultWindowSize = 7

// ErrEmpty is returned by Pick when the chain holds no tracks.
var ErrEmpty = errors.New("shuffle chain is empty")

type entry struct {
	uri    string
	weight int
}

// pool is a weighted group of tracks sharing a group key. Pools are
// selected proportionally to their aggregate weight, then a track is
// selected within the pool.
type pool struct {
	key     string
	entries []entry
	weight  int // running sum of entry weights
}

// Chain holds the eligible tracks and produces randomized picks.
// Tracks are never evicted; only picks are windowed.
//
// The same URI may be added more than once, to the same or to different
// pools. Duplicates are kept as distinct entries: this is how callers
// artificially boost a track's selection weight.
type Chain struct {
	windowSize int
	pools      []*pool
	byKey      map[string]int
	total      int // running sum of pool weights

	window   []string       // recent picks, oldest first
	windowed map[string]int // URIs currently windowed, with counts

	rng *rand.Rand
}

// NewChain creates a chain with the given recency window size. A window
// size of zero disables repeat suppression entirely.
func NewChain(windowSize int) *Chain {
	return &Chain{
		windowSize: windowSize,
		byKey:      make(map[string]int),
		windowed:   make(map[string]int),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type addOptions struct {
	weight int
	group  string
}

// AddOption adjusts how a track is inserted into the chain.
type AddOption func(*addOptions)

// WithWeight sets the track's selection weight. Must be positive.
func WithWeight(w int) AddOption {
	return func(o *addOptions) { o.weight = w }
}

// WithGroup places the track in the named pool instead of the default one.
func WithGroup(key string) AddOption {
	return func(o *addOptions) { o.group = key }
}

// Add inserts a track into its pool, creating the pool if absent.
func (c *Chain) Add(uri string, opts ...AddOption) error {
	o := addOptions{weight: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.weight < 1 {
		return fmt.Errorf("track weight must be positive, got %d", o.weight)
	}

	idx, ok := c.byKey[o.group]
	if !ok {
		idx = len(c.pools)
		c.pools = append(c.pools, &pool{key: o.group})
		c.byKey[o.group] = idx
	}
	p := c.pools[idx]
	p.entries = append(p.entries, entry{uri: uri, weight: o.weight})
	p.weight += o.weight
	c.total += o.weight
	return nil
}

// Len returns the total number of track entries across all pools.
func (c *Chain) Len() int {
	n := 0
	for _, p := range c.pools {
		n += len(p.entries)
	}
	return n
}

// Groups returns the track URIs of every pool, in pool insertion order.
func (c *Chain) Groups() [][]string {
	out := make([][]string, 0, len(c.pools))
	for _, p := range c.pools {
		uris := make([]string, 0, len(p.entries))
		for _, e := range p.entries {
			uris = append(uris, e.uri)
		}
		out = append(out, uris)
	}
	return out
}

// Pick selects a track: first a pool, proportionally to its aggregate
// weight, then a track within the pool, proportionally to its own weight
// and excluding tracks in the recency window. If every track of the pool
// is windowed the exclusion is dropped for this pick only. The result is
// pushed into the window, evicting the oldest pick beyond capacity.
func (c *Chain) Pick() (string, error) {
	if c.total == 0 {
		return "", ErrEmpty
	}
	p := c.pickPool()
	uri := c.pickEntry(p)
	c.push(uri)
	return uri, nil
}

func (c *Chain) pickPool() *pool {
	r := c.rng.Intn(c.total)
	for _, p := range c.pools {
		if r < p.weight {
			return p
		}
		r -= p.weight
	}
	// Unreachable while total stays in sync with the pool weights.
	return c.pools[len(c.pools)-1]
}

func (c *Chain) pickEntry(p *pool) string {
	eligible := 0
	for _, e := range p.entries {
		if c.windowed[e.uri] == 0 {
			eligible += e.weight
		}
	}
	if eligible == 0 {
		// Every track in this pool was picked recently; fall back to
		// the full pool rather than blocking.
		r := c.rng.Intn(p.weight)
		for _, e := range p.entries {
			if r < e.weight {
				return e.uri
			}
			r -= e.weight
		}
		return p.entries[len(p.entries)-1].uri
	}
	r := c.rng.Intn(eligible)
	for _, e := range p.entries {
		if c.windowed[e.uri] > 0 {
			continue
		}
		if r < e.weight {
			return e.uri
		}
		r -= e.weight
	}
	return p.entries[len(p.entries)-1].uri
}

func (c *Chain) push(uri string) {
	if c.windowSize <= 0 {
		return
	}
	c.window = append(c.window, uri)
	c.windowed[uri]++
	if len(c.window) > c.windowSize {
		oldest := c.window[0]
		c.window = c.window[1:]
		if c.windowed[oldest]--; c.windowed[oldest] == 0 {
			delete(c.windowed, oldest)
		}
	}
}
