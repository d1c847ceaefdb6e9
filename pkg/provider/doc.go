// Package provider defines the secret addressing types shared by vaultboot's
// command layer and its Vault implementation.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────┐
//	│               CLI Commands                  │
//	│            (cmd/vaultboot/)                 │
//	└──────────────────────┬──────────────────────┘
//	                       │ Reference
//	┌──────────────────────▼──────────────────────┐
//	│              Secret Fetcher                 │
//	│        (internal/providers/vault/)          │
//	└──────────────────────┬──────────────────────┘
//	                       │ Store
//	┌──────────────────────▼──────────────────────┐
//	│        HashiCorp Vault (KV version 2)       │
//	└─────────────────────────────────────────────┘
//
// # References
//
// A Reference names a mount, a path inside that mount and a field inside the
// secret's data map. vaultboot reads exactly one location, DefaultReference,
// which is compiled in rather than taken from user input:
//
//	kv/store#password
//
// # Security Considerations
//
// Values resolved through a Reference must never be logged in cleartext.
// Wrap them with logging.Secret before passing them to a logger.
package provider
