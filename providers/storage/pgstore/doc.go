// Package pgstore provides a PostgreSQL-backed implementation of
// [storage.Storage]. Values live as JSON rows in a single table keyed by
// (namespace, key); each [Store] instance is scoped to one namespace, so a
// persistent and a context store can share a database without colliding.
//
// The main entry point is [New]. Use [Store.EnsureSchema] during development
// to create the table; production deployments should manage the schema with
// dedicated migration tooling.
package pgstore
