// Package config loads quotedesk's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/quotedesk/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// # Fields
//
//	api_base       = "http://127.0.0.1:8080"              # quote REST API
//	user_agent     = ""                                   # defaults to quotedesk/<version>
//	storage_path   = "~/.local/share/quotedesk/pending.db" # pending row snapshots
//	log_file       = "~/.local/share/quotedesk/quotedesk.log"
//	log_level      = "info"                               # debug, info, warn, error
//	poll_seconds   = 5                                    # server refresh cadence
//	batch_size     = 10                                   # new rows per create request
//	create_timeout = "30s"                                # per batch-create request
//	update_timeout = "15s"                                # per update/validate request
//	snapshot_ttl   = "24h"                                # older snapshots are discarded
//
// Durations use Go duration syntax and must be positive. Tilde expansion is
// applied to storage_path and log_file.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and malformed durations
//
// Missing config files are NOT an error. quotedesk works out of the box
// against a local API.
package config
