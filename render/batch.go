package render

// MaxInstances is the hard cap on quad instances per frame. The instance
// buffer is sized for it once; instances beyond the cap are dropped for
// the frame rather than growing the buffer mid-frame.
const MaxInstances = 65536

// Batcher turns an ordered stream of draw primitives into the minimum
// number of GPU draw calls, greedily coalescing contiguous runs that
// share a shading type.
//
// The batcher never reorders: paint order is the submission order, which
// overlapping strokes (ligature overhang, double underlines) rely on.
// Callers wanting good batching must submit primitives already grouped
// by shading type where contiguity matters, e.g. all backgrounds of a
// row before its glyphs.
type Batcher struct {
	instances []QuadInstance
	batches   []BatchedDrawCall
	dropped   uint64
}

// NewBatcher creates a batcher with capacity preallocated for a typical
// frame.
func NewBatcher() *Batcher {
	return &Batcher{
		instances: make([]QuadInstance, 0, 4096),
		batches:   make([]BatchedDrawCall, 0, 64),
	}
}

// AddInstance appends one quad. It opens a new batch when the shading
// type differs from the last batch's, otherwise extends the last batch.
//
// Once MaxInstances is reached the instance is silently dropped: a dense
// frame loses visuals rather than crashing or reallocating. Callers
// should flush before the cap on frames that can plausibly reach it.
func (b *Batcher) AddInstance(inst QuadInstance) {
	if len(b.instances) >= MaxInstances {
		b.dropped++
		return
	}

	if n := len(b.batches); n == 0 || b.batches[n-1].ShadingType != inst.ShadingType {
		b.batches = append(b.batches, BatchedDrawCall{
			InstanceOffset: uint32(len(b.instances)),
			InstanceCount:  1,
			ShadingType:    inst.ShadingType,
		})
	} else {
		b.batches[n-1].InstanceCount++
	}

	b.instances = append(b.instances, inst)
}

// Instances returns the accumulated instance array. Valid until Reset.
func (b *Batcher) Instances() []QuadInstance {
	return b.instances
}

// Batches returns the draw calls covering Instances, in submission
// order. Valid until Reset.
func (b *Batcher) Batches() []BatchedDrawCall {
	return b.batches
}

// Len returns the number of accepted instances.
func (b *Batcher) Len() int {
	return len(b.instances)
}

// Dropped returns how many instances the cap discarded since the last
// Reset.
func (b *Batcher) Dropped() uint64 {
	return b.dropped
}

// Reset clears the batcher for the next frame, keeping backing arrays.
func (b *Batcher) Reset() {
	b.instances = b.instances[:0]
	b.batches = b.batches[:0]
	b.dropped = 0
}
