// Package abi models target calling conventions as storage classes.
//
// A Descriptor names the register files and stack of one target triple,
// with ordered argument and return locations per class. It supplies the
// size/location vocabulary that binding recipes reference; which class a
// given value occupies is decided upstream by the classifier and arrives
// already baked into the calling sequence.
//
// Slot is one concrete location (class index + register index). Registers
// is the materialized register file a native callee reads arguments from
// and writes results into.
//
// Descriptors are immutable singletons; their identity keys the engine's
// buffer-layout and trampoline caches.
package abi
