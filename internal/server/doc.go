// Package server hosts the HTTP engine capability used by the handle and its
// Fiber v3 implementation. The handle never talks to Fiber directly: it asks
// an EngineFactory for a fresh Engine on every start, replays its queued
// routes and static mounts onto it, and then binds the port.
// FiberEngine attaches request-id and recover middlewares, turns the
// framework's panic on unknown HTTP methods into a typed MethodError, and
// rebuilds the routing tree when routes arrive after the engine is listening.
package server
