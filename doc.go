// Package crudrepo wires the generic repository to a bun persistence context
// on the global database. See the repository package for the CRUD surface and
// the dbcontext package for commit semantics.
package crudrepo
