package mqtt

import log "github.com/sirupsen/logrus"

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	coalesce bool // a newer message for the same topic replaces this one
}

// ringBuffer is a fixed-capacity FIFO of messages published while the
// broker was unreachable. The oldest message is dropped when full.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if msg.coalesce && r.replace(msg) {
		return
	}
	if r.count == r.capacity {
		if !r.overflow {
			log.WithField("capacity", r.capacity).Warn("mqtt: offline buffer full, dropping oldest")
			r.overflow = true
		}
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		// count stays at capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// replace overwrites a buffered coalescing message on msg's topic, keeping
// its position. Reports whether one was found.
func (r *ringBuffer) replace(msg bufferedMsg) bool {
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		j := (start + i) % r.capacity
		if r.buf[j].coalesce && r.buf[j].topic == msg.topic {
			r.buf[j] = msg
			return true
		}
	}
	return false
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

// pushFront puts msgs back ahead of anything buffered since they were
// drained, so a failed replay keeps its order.
func (r *ringBuffer) pushFront(msgs []bufferedMsg) {
	rest := r.drainAll()
	for _, m := range msgs {
		r.push(m)
	}
	for _, m := range rest {
		r.push(m)
	}
}

func (r *ringBuffer) len() int {
	return r.count
}
