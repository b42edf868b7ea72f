// MIT License
//
// Copyright (c) 2023 kache.io
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package pipeline

import "sync"

// Queue is a capacity-bounded packet deque, modeled on the embedded
// server's HttpQueue: a stage reads from its own queue with Get, can push
// a packet it isn't ready to consume back on the front with PutBack, and
// forwards packets downstream with PutToNext only once the downstream
// queue signals room via WillNextAccept. There is no blocking: a full
// downstream queue is a back-pressure signal, not a wait condition.
type Queue struct {
	mu       sync.Mutex
	items    []*Packet
	size     int
	capacity int // max buffered bytes; 0 means unbounded
}

// NewQueue creates a Queue with the given byte capacity. A capacity of 0
// means unbounded.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// Put appends a packet to the back of the queue.
func (q *Queue) Put(p *Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	q.size += len(p.Content)
}

// Get removes and returns the packet at the front of the queue, or nil if
// the queue is empty.
func (q *Queue) Get() *Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	p := q.items[0]
	q.items = q.items[1:]
	q.size -= len(p.Content)
	return p
}

// PutBack pushes a packet back onto the front of the queue, for a stage
// that read a packet it isn't ready to process yet.
func (q *Queue) PutBack(p *Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]*Packet{p}, q.items...)
	q.size += len(p.Content)
}

// WillNextAccept reports whether next has room for another packet, so a
// stage can decide whether to forward or hold back.
func (q *Queue) WillNextAccept(next *Queue) bool {
	if next.capacity == 0 {
		return true
	}
	next.mu.Lock()
	defer next.mu.Unlock()
	return next.size < next.capacity
}

// PutToNext forwards p to next.
func (q *Queue) PutToNext(next *Queue, p *Packet) {
	next.Put(p)
}

// Len returns the number of packets currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
