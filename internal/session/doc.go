// Package session implements the in-memory session cache and its expiration
// sweeper.
//
// # Lifecycle
//
// A session is created by a successful Create (credential verification plus
// SID minting), mutated in place by Elevate (privilege flag) and Renew
// (activity heartbeat), and removed by Destroy, by the sweeper once its
// per-kind TTL elapses, or never - sessions are not merged or superseded; an
// account may hold any number of concurrent sessions.
//
// # State machine
//
//	short|long --Elevate--> elevated        (one-way, root sessions only)
//	any        --Destroy/Sweep--> removed
//
// There is no transition back from elevated; a caller wanting downgraded
// access creates a fresh session.
//
// # Known limitation
//
// Sessions snapshot the account's root flag at creation. Revoking root on an
// account does not demote its live sessions; they stay elevation-eligible
// until they expire. Deliberately preserved - see DESIGN.md.
package session
