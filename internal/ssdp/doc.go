// Package ssdp implements SSDP discovery of DIAL media receivers.
//
// An Engine runs one discovery session at a time. A session repeatedly sends
// an M-SEARCH for the DIAL service type to the multicast group
// 239.255.255.250:1900 and waits a short, bounded time for a reply. Each
// reply is scanned for a LOCATION header; locations that pass the optional
// port filter and have not been seen before in the session are reported to a
// Sink as they arrive.
//
// # Session Lifecycle
//
//  1. Start marks the session running and launches a worker goroutine
//  2. The worker opens a UDP socket on an ephemeral port
//  3. Send M-SEARCH, receive one datagram (bounded by the receive timeout)
//  4. Repeat until the budget expires, Stop is called or the context ends
//  5. Close the socket, then deliver Stopped
//
// A fatal socket error delivers DiscoveryError before Stopped. Receive
// timeouts are the normal idle case and are not reported.
//
// # Usage Example
//
//	engine := ssdp.NewEngine(ssdp.Options{})
//	sink, events := ssdp.ChanSink(16)
//
//	engine.Start(ctx, sink, 10*time.Second, ssdp.AnyPort)
//	for ev := range events {
//	    fmt.Println(ev)
//	}
//
// # Cancellation
//
// Stop is cooperative: the worker checks the running flag once per loop
// iteration, so a stop takes effect within one receive timeout. Use
// Engine.Wait or Session.Done to synchronize with the Stopped event.
//
// # Thread Safety
//
// Start, Stop, Running and Wait may be called from any goroutine. Sink methods
// are invoked sequentially from the session worker.
package ssdp
