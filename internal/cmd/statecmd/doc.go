// Package statecmd provides the `stateflo` command-line interface.
//
// The CLI opens the local data directory directly; it must not run while
// another process holds the same directory open.
//
// Usage
//
//	stateflo config init --path ./stateflo.yaml
//	stateflo --config ./stateflo.yaml config show
//
//	stateflo state set --store counts --partition 0 user-1 '{"n":1}' --processed-offset 42
//	stateflo state get --store counts user-1
//	stateflo state set --store counts --prefix tenant-a visits 3
//	stateflo state scan --store counts --prefix tenant-a
//	stateflo state delete --store counts user-1
//	stateflo state offsets --store counts
//	stateflo state recover --store counts --partition 0
//	stateflo state stores
//
//	stateflo changelog dump --store counts --filter 'tombstone || json.n > 1.0'
//	stateflo changelog dump --store counts --group audit --limit 100
//	stateflo changelog compact --store counts
//
//	# HTTP API; /metrics is served when metrics.enabled is set
//	stateflo serve --http :8080
//
// Global flags --data-dir, --backend, --log-level and --log-format override
// the configuration file and STATEFLO_* environment variables.
package statecmd
