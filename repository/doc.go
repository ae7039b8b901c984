// Package repository provides a generic CRUD repository over an entity set and
// a unit of work, with 1-based paging, lazy predicate queries, an auto-save
// commit policy, and Future-based asynchronous variants of every operation.
package repository
