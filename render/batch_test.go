package render

import "testing"

func inst(s ShadingType) QuadInstance {
	return QuadInstance{ShadingType: s, SizeX: 1, SizeY: 1}
}

// Batches tile the instance array exactly: counts sum to the instance
// total, ranges are disjoint, in order, and one batch per maximal run of
// equal shading type.
func TestBatcherCoversInstanceArray(t *testing.T) {
	tests := []struct {
		name    string
		stream  []ShadingType
		wantLen []uint32
	}{
		{
			name:    "classic row",
			stream:  []ShadingType{ShadingBackground, ShadingBackground, ShadingTextGrayscale, ShadingTextGrayscale, ShadingTextGrayscale, ShadingCursor},
			wantLen: []uint32{2, 3, 1},
		},
		{
			name:    "single run",
			stream:  []ShadingType{ShadingBackground, ShadingBackground, ShadingBackground},
			wantLen: []uint32{3},
		},
		{
			name:    "alternating",
			stream:  []ShadingType{ShadingBackground, ShadingCursor, ShadingBackground},
			wantLen: []uint32{1, 1, 1},
		},
		{
			name:    "regrouped run does not merge",
			stream:  []ShadingType{ShadingTextGrayscale, ShadingSolidLine, ShadingTextGrayscale},
			wantLen: []uint32{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBatcher()
			for _, s := range tt.stream {
				b.AddInstance(inst(s))
			}

			batches := b.Batches()
			if len(batches) != len(tt.wantLen) {
				t.Fatalf("got %d batches, want %d", len(batches), len(tt.wantLen))
			}

			var total, offset uint32
			for i, batch := range batches {
				if batch.InstanceCount != tt.wantLen[i] {
					t.Errorf("batch %d count = %d, want %d", i, batch.InstanceCount, tt.wantLen[i])
				}
				if batch.InstanceOffset != offset {
					t.Errorf("batch %d offset = %d, want %d (ranges must tile)", i, batch.InstanceOffset, offset)
				}
				if batch.ShadingType != b.Instances()[batch.InstanceOffset].ShadingType {
					t.Errorf("batch %d shading type mismatch with its first instance", i)
				}
				offset += batch.InstanceCount
				total += batch.InstanceCount
			}
			if int(total) != b.Len() {
				t.Errorf("batch counts sum to %d, want %d instances", total, b.Len())
			}
		})
	}
}

// Paint order is submission order: the batcher never reorders.
func TestBatcherPreservesSubmissionOrder(t *testing.T) {
	b := NewBatcher()
	for i := 0; i < 10; i++ {
		q := inst(ShadingBackground)
		q.PositionX = int16(i)
		b.AddInstance(q)
	}

	for i, got := range b.Instances() {
		if got.PositionX != int16(i) {
			t.Fatalf("instance %d has position %d, submission order broken", i, got.PositionX)
		}
	}
}

// Exceeding the cap silently drops instances instead of crashing or
// reallocating mid-frame.
func TestBatcherInstanceCap(t *testing.T) {
	b := NewBatcher()
	for i := 0; i < MaxInstances+100; i++ {
		b.AddInstance(inst(ShadingBackground))
	}

	if b.Len() != MaxInstances {
		t.Errorf("accepted %d instances, want exactly %d", b.Len(), MaxInstances)
	}
	if b.Dropped() != 100 {
		t.Errorf("dropped %d instances, want 100", b.Dropped())
	}

	var total uint32
	for _, batch := range b.Batches() {
		total += batch.InstanceCount
	}
	if int(total) != MaxInstances {
		t.Errorf("batches cover %d instances, want %d", total, MaxInstances)
	}
}

func TestBatcherReset(t *testing.T) {
	b := NewBatcher()
	b.AddInstance(inst(ShadingBackground))
	b.AddInstance(inst(ShadingCursor))

	b.Reset()

	if b.Len() != 0 || len(b.Batches()) != 0 || b.Dropped() != 0 {
		t.Errorf("Reset left state: len=%d batches=%d dropped=%d", b.Len(), len(b.Batches()), b.Dropped())
	}

	b.AddInstance(inst(ShadingCursor))
	if got := b.Batches(); len(got) != 1 || got[0].InstanceOffset != 0 {
		t.Errorf("first batch after Reset = %+v, want offset 0", got)
	}
}
