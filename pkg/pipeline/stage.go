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

// Direction indicates which side of the connection a stage is being
// matched for, mirroring the embedded server's HTTP_STAGE_RX/HTTP_STAGE_TX.
type Direction int

const (
	Rx Direction = iota
	Tx
)

// Disposition is the result of a Stage's Match call.
type Disposition int

const (
	// Reject means this stage does not want to handle the request.
	Reject Disposition = iota
	// Accept means this stage claims the request.
	Accept
)

// Stage is a named pipeline component. A handler claims a request via
// Match and produces the response in Process; a filter claims the
// outgoing side via Match and observes/transforms outgoing packets in
// OutgoingService. Both roles share this interface for naming and
// matching, as the embedded server's HttpStage does; Process and
// OutgoingService live in the separate Processor and OutgoingServicer
// interfaces, implemented only by stages that need them.
type Stage interface {
	Name() string
	Match(conn *Conn, route *Route, dir Direction) Disposition
}

// Processor is implemented by handler stages that produce response
// content once matched.
type Processor interface {
	Process(conn *Conn, q *Queue)
}

// OutgoingServicer is implemented by filter stages that observe or
// transform the outgoing packet stream once matched. Implementations
// drain their own queue with Get, decide per packet whether the
// downstream queue has room via WillNextAccept, and PutBack instead of
// forwarding when it doesn't — exactly the embedded server's
// outgoingCacheFilterService loop.
type OutgoingServicer interface {
	OutgoingService(conn *Conn, q, next *Queue)
}
