package dataset

import (
	"fmt"
	"math/rand"
)

// MiniBatch groups example tensors for one optimization step. The
// slices alias the underlying examples; treat them as read-only.
type MiniBatch struct {
	Images [][]float32
	Labels [][]float32
}

// Size returns the number of examples in the mini-batch.
func (m *MiniBatch) Size() int {
	return len(m.Images)
}

// Loader iterates a prepared Batch in mini-batches, reshuffling the
// example order between epochs when enabled. The final mini-batch of
// an epoch may be smaller than the configured size.
type Loader struct {
	batch     *Batch
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	indices   []int
	position  int
}

// NewLoader returns a Loader positioned at the start of its first
// epoch. The seed fixes the shuffle sequence.
func NewLoader(batch *Batch, batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if batch == nil || batch.Len() == 0 {
		return nil, fmt.Errorf("batch must contain at least one example")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	indices := make([]int, batch.Len())
	for i := range indices {
		indices[i] = i
	}

	l := &Loader{
		batch:     batch,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		indices:   indices,
	}
	l.Reset()
	return l, nil
}

// Batches returns the number of mini-batches per epoch.
func (l *Loader) Batches() int {
	return (l.batch.Len() + l.batchSize - 1) / l.batchSize
}

// HasNext reports whether the current epoch has mini-batches left.
func (l *Loader) HasNext() bool {
	return l.position < len(l.indices)
}

// Next returns the next mini-batch of the current epoch.
func (l *Loader) Next() (*MiniBatch, error) {
	if !l.HasNext() {
		return nil, fmt.Errorf("epoch exhausted after %d batches; call Reset", l.Batches())
	}

	end := l.position + l.batchSize
	if end > len(l.indices) {
		end = len(l.indices)
	}

	mb := &MiniBatch{
		Images: make([][]float32, 0, end-l.position),
		Labels: make([][]float32, 0, end-l.position),
	}
	for _, idx := range l.indices[l.position:end] {
		ex := l.batch.examples[idx]
		mb.Images = append(mb.Images, ex.Image)
		mb.Labels = append(mb.Labels, ex.Label)
	}
	l.position = end
	return mb, nil
}

// Reset begins a new epoch, reshuffling when enabled.
func (l *Loader) Reset() {
	if l.shuffle {
		l.rng.Shuffle(len(l.indices), func(i, j int) {
			l.indices[i], l.indices[j] = l.indices[j], l.indices[i]
		})
	}
	l.position = 0
}
