// Package account implements the credential store: durable, name-keyed user
// records with bcrypt password hashes.
//
// # Invariants
//
//   - Account names are unique (the name is the storage key).
//   - Account UUIDs ("<name>.<uuid>") are unique across all accounts.
//   - The set of root accounts is never emptied by Delete. Creation never
//     requires root, so the invariant is enforced at deletion time only.
//
// # Bootstrap
//
// Open on an empty store synthesizes one root account with the well-known
// admin/admin credentials and logs it at error severity. The bootstrap is
// gated on "zero accounts exist", so reopening a populated store never
// repeats it.
//
// # Errors
//
// Expected outcomes are sentinel errors (ErrNameTaken, ErrNotFound,
// ErrCantDeleteLastRoot, ErrBadPassword, and the policy violations in
// policy.go) matched with errors.Is. Infrastructure failures from the
// key-value layer are wrapped and propagated as-is.
package account
