// Package storage manages attached Azure Storage accounts and fans read-only
// probes out over them through a bounded task pool.
//
// Accounts are attached from a connection string or as the local emulator and
// persisted as JSON. The Prober reads each account's blob service properties
// to report whether static website hosting is enabled, never running more
// than the configured number of requests at once.
package storage
