// Package handle implements the remote-controllable server handle: a State
// holding the lifecycle flag, bound port, live engine and two append-only
// queues (routes and static mounts), and a Controller that mutates them.
//
// Registrations are always queued. When an engine is live they are applied
// immediately; otherwise they are replayed in insertion order on the next
// Start. Stop tears the engine down but keeps both queues, so a restarted
// handle serves everything registered before.
package handle
