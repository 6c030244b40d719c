package audio

import "sync"

// ClipBuffer feeds one decoded clip to a playback callback in
// device-sized chunks
type ClipBuffer struct {
	mu      sync.Mutex
	data    []byte
	pos     int
	drained chan struct{}
	once    sync.Once
}

func NewClipBuffer(pcm []byte) *ClipBuffer {
	b := &ClipBuffer{data: pcm, drained: make(chan struct{})}
	if len(pcm) == 0 {
		b.markDrained()
	}
	return b
}

// Fill copies the next chunk into out and zeroes whatever the clip
// cannot cover. It returns the number of clip bytes copied.
func (b *ClipBuffer) Fill(out []byte) int {
	b.mu.Lock()
	n := copy(out, b.data[b.pos:])
	b.pos += n
	done := b.pos >= len(b.data)
	b.mu.Unlock()

	clear(out[n:])
	if done {
		b.markDrained()
	}
	return n
}

// Remaining is the number of clip bytes not yet handed out
func (b *ClipBuffer) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) - b.pos
}

// Drained is closed once every clip byte has been handed out
func (b *ClipBuffer) Drained() <-chan struct{} {
	return b.drained
}

func (b *ClipBuffer) markDrained() {
	b.once.Do(func() { close(b.drained) })
}
