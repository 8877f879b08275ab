package partitions

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/spaolacci/murmur3"
	"go.uber.org/atomic"
)

// ErrNoWorker is returned by Assigner.DetermineWorker when no destination
// worker corresponds to the given key.
var ErrNoWorker = errors.New("no worker for key")

// Context provides the calling side's identity to assigners that route
// relative to the current worker.
type Context interface {
	WorkerIndex() int
}

// Assigner deterministically maps a group key to a destination worker index.
// The mapping must be stable for the duration of one shuffle exchange, so
// that every item sharing a key converges on a single destination.
type Assigner interface {
	DetermineWorker(c Context, key string, numWorkers int) (int, error)
}

type hashKeyAssigner struct{}

// NewHashKeyAssigner returns the default assigner, which routes keys by
// Fowler–Noll–Vo hash modulo the worker count.
func NewHashKeyAssigner() Assigner {
	return &hashKeyAssigner{}
}

func (h *hashKeyAssigner) DetermineWorker(c Context, key string, numWorkers int) (int, error) {
	return int(fnv1a.HashString64(key) % uint64(numWorkers)), nil
}

type murmur3Assigner struct{}

// NewMurmur3Assigner routes keys by murmur3 hash. Results are stable like the
// default assigner's but distribute differently; useful when a dataset's keys
// collide badly under fnv1a.
func NewMurmur3Assigner() Assigner {
	return &murmur3Assigner{}
}

func (m *murmur3Assigner) DetermineWorker(c Context, key string, numWorkers int) (int, error) {
	return int(murmur3.Sum64([]byte(key)) % uint64(numWorkers)), nil
}

// FiniteKeyAssigner evenly distributes a predefined set of keys to workers.
// Keys outside the set fail with ErrNoWorker.
type FiniteKeyAssigner struct {
	keys     []string
	position map[string]int
}

func NewFiniteKeyAssigner(keys []string) *FiniteKeyAssigner {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	position := make(map[string]int, len(sorted))
	for i, k := range sorted {
		position[k] = i
	}
	return &FiniteKeyAssigner{keys: sorted, position: position}
}

func (f *FiniteKeyAssigner) DetermineWorker(c Context, key string, numWorkers int) (int, error) {
	pos, ok := f.position[key]
	if !ok {
		return 0, errors.Wrapf(ErrNoWorker, "key %q is not in the known key set", key)
	}
	return pos % numWorkers, nil
}

// Assignments returns the full key-to-worker mapping this assigner produces
// for the given worker count.
func (f *FiniteKeyAssigner) Assignments(numWorkers int) (as Assignments) {
	for i, k := range f.keys {
		as = append(as, Assignment{Key: k, Worker: i % numWorkers})
	}
	return
}

// ShuffledAssigner routes items round-robin, ignoring keys. It is used to
// spread unkeyed rows evenly, e.g. when splitting an input dataset.
type ShuffledAssigner struct {
	sent *atomic.Uint64
}

func NewShuffledAssigner() Assigner {
	return &ShuffledAssigner{sent: atomic.NewUint64(0)}
}

func (s *ShuffledAssigner) DetermineWorker(c Context, key string, numWorkers int) (int, error) {
	return int((s.sent.Add(1) - 1) % uint64(numWorkers)), nil
}

// PreserveAssigner keeps every item on the worker that already holds it.
type PreserveAssigner struct{}

func NewPreserveAssigner() Assigner {
	return PreserveAssigner{}
}

func (p PreserveAssigner) DetermineWorker(c Context, key string, numWorkers int) (int, error) {
	return c.WorkerIndex(), nil
}
