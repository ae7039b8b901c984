// Package database manages bun connections for mysql, postgres and sqlite:
// configuration, connection pooling, reconnects and health checks, query
// hooks, SQL error classification, the model registry and table migrations.
package database
