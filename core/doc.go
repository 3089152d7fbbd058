// Package core contains the canonical sync auth domain contracts, the user
// credential state machine, and the session registry logic. Lower-level
// adapters must depend on this package; core must not depend on storage or
// queue-specific adapters.
package core
