// Package realtime maintains the controller's push channel: a single
// websocket that the client only reads from, reconnected on a timer the
// channel owns until it is explicitly closed.
//
// # States
//
//	Connecting → Open → Reconnecting → Connecting → ...
//	any state  → Closed (absorbing)
//
// After a drop or a failed dial the channel waits ReconnectDelay, or a
// doubling delay capped at MaxReconnectDelay, and dials again. There is
// never more than one dial in progress.
//
// # Liveness
//
// The channel pings every PingInterval and expects some traffic, pongs
// included, within PongWait. A controller that reboots without closing the
// socket is therefore noticed and redialled instead of leaving the channel
// Open forever.
//
// # Messages
//
// Frames decode to Message{Type, Data}. Frames that are not JSON, or carry
// no type, are logged at a throttled rate and dropped; the channel stays
// Open. The observer runs on the reader goroutine, once per message, in
// arrival order.
package realtime
