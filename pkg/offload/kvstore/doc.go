// Package kvstore is the locked key/value layer behind the offload token
// registry.
//
// Keys are arbitrary byte strings (offload tokens) and values are opaque
// byte strings (serialized handle references). A Store wraps a Backend with a
// per-key lock table: FetchLocked returns a Record that holds an exclusive
// lock on its key until Release is called, so callers working on the same
// key serialize while callers on different keys never wait on each other.
//
//	rec, err := store.FetchLocked(ctx, key)
//	if err != nil {
//	    return err
//	}
//	defer rec.Release()
//	if rec.Value() == nil {
//	    err = rec.Store(value)
//	}
//
// Two backends are provided: an in-process sharded map ("memory") and
// BadgerDB ("badger"), which runs in in-memory mode or on a scratch directory
// created on open and removed on Close. Neither survives a restart.
package kvstore
