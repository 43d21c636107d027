// Package domain defines the core entities of the 2nd Brain session client.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CredentialPair: The access/refresh token pair of the current login
//   - SyncProgress: A polled snapshot of a connector's background sync
//   - ChatMessage: One turn of a chat session, possibly still streaming
//   - SessionEvent: A change published by SessionState to observers
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
