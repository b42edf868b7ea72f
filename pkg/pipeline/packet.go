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

// Package pipeline implements the request/response plumbing that stages
// (handlers and filters) run over: packets, back-pressure queues,
// connections, routes and the per-connection MIME registry. It plays the
// role the embedded server's core (HttpConn/HttpQueue/HttpPacket) plays
// for the cache and session subsystems built on top of it.
package pipeline

// Kind tags what a Packet carries.
type Kind int

const (
	// Data carries a chunk of body bytes.
	Data Kind = iota
	// End marks the end of a message; carries no bytes.
	End
)

// Packet is the unit of data moved through a Queue, modeled on the
// embedded server's HttpPacket (HTTP_PACKET_DATA / HTTP_PACKET_END).
type Packet struct {
	Kind    Kind
	Content []byte
}

// NewDataPacket creates a Data packet wrapping b.
func NewDataPacket(b []byte) *Packet {
	return &Packet{Kind: Data, Content: b}
}

// NewEndPacket creates an End packet.
func NewEndPacket() *Packet {
	return &Packet{Kind: End}
}
