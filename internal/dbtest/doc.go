/*
Package dbtest spins up database containers for the tests of knowledge stores
(see the neo4jstore package). It wraps testcontainers-go with the settings our
stores are deployed with.

Tests that need a specific database configuration should use the
testcontainers-go modules directly instead.

When a container-based test fails locally, the database can be kept running for
manual inspection:

	go test ./neo4jstore -run TestStore -dbtest.inspect

This package is intended to be used in tests only.
*/
package dbtest
