// Package commit publishes a reviewed session into the permanent catalogue
// exactly once.
//
// Service.Commit checks for an existing record by origin session before doing
// any work, validates eligibility, resolves each field by precedence, and
// writes every catalogue row plus the session's APPROVED status inside one
// repository transaction. The repository must enforce uniqueness on the
// origin session; a violation surfaces as ErrDuplicateCommit and is resolved
// by re-reading the winning record. Temporary storage cleanup runs after the
// transaction and never fails the commit.
package commit
