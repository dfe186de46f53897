package dataset

import (
	"fmt"
	"math/rand"

	"github.com/tsawler/go-mnist/record"
)

// Batch is an ordered, read-only collection of decoded examples.
// Insertion order matches source order. A Batch is built once by a
// preparation run and never mutated afterwards.
type Batch struct {
	examples []*record.Example
}

func newBatch(examples []*record.Example) *Batch {
	return &Batch{examples: examples}
}

// NewBatch builds a collection directly from decoded examples.
func NewBatch(examples []*record.Example) *Batch {
	out := make([]*record.Example, len(examples))
	copy(out, examples)
	return &Batch{examples: out}
}

// Len returns the number of examples.
func (b *Batch) Len() int {
	return len(b.examples)
}

// Get returns the example at index i.
func (b *Batch) Get(i int) (*record.Example, error) {
	if i < 0 || i >= len(b.examples) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(b.examples))
	}
	return b.examples[i], nil
}

// Split partitions the batch into train and validation collections.
// With shuffle enabled the partition is drawn from a seeded permutation,
// otherwise it follows source order.
func (b *Batch) Split(trainRatio float64, shuffle bool, seed int64) (*Batch, *Batch, error) {
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, nil, fmt.Errorf("train ratio must be between 0 and 1, got %f", trainRatio)
	}

	indices := make([]int, len(b.examples))
	for i := range indices {
		indices[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	trainSize := int(float64(len(b.examples)) * trainRatio)
	train, err := b.Subset(indices[:trainSize])
	if err != nil {
		return nil, nil, err
	}
	val, err := b.Subset(indices[trainSize:])
	if err != nil {
		return nil, nil, err
	}
	return train, val, nil
}

// Subset returns a new collection holding the examples at the given
// indices, in the given order.
func (b *Batch) Subset(indices []int) (*Batch, error) {
	examples := make([]*record.Example, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(b.examples) {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(b.examples))
		}
		examples = append(examples, b.examples[idx])
	}
	return &Batch{examples: examples}, nil
}
