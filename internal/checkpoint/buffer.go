package checkpoint

import "sync"

type blockBuffer struct {
	mu     sync.Mutex
	buffer []*BlockRecord
}

func newBlockBuffer() *blockBuffer {
	return &blockBuffer{}
}

func (b *blockBuffer) Add(record *BlockRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, record)
}

func (b *blockBuffer) Flush() []*BlockRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := b.buffer
	b.buffer = nil
	return flushed
}

func (b *blockBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
