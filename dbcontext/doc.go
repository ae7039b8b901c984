// Package dbcontext is a bun-backed persistence context for the generic
// repository. A Context collects staged inserts, updates and deletes and
// writes them in one transaction on Commit; a Set reads one entity type and
// stages changes on its Context.
//
// A Context serves one logical scope and must be closed when the scope ends.
// Reads other than Set.Find observe committed state only.
package dbcontext
