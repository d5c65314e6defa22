// Package pipeserver serves fixed-size request/response messages to many
// local clients over a named message endpoint.
//
// One poller goroutine owns every connection slot. Each slot carries an
// auto-reset signal that its asynchronous accept, read or write sets on
// completion; the poller waits on all of them at once, in a fixed order:
//
//	0     stop
//	1     response ready
//	2...  connection slots, in creation order
//
// When no slot is free the pool grows before the next wait, so a client is
// never turned away. A slot whose client misbehaves is reconnected in place;
// the rest of the pool is unaffected.
//
// Requests are handed to a Handler on the poller goroutine. The handler, or
// any goroutine it passes the request to, answers with Respond or
// Acknowledge, which queue the answer for the poller.
package pipeserver
