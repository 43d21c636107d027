// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - HTTPDoer: Sends HTTP requests (an *http.Client, or the RequestPipeline itself)
//   - CredentialStore: Persistence of the access/refresh token pair
//   - TokenRenewer: Exchanges a refresh token for a fresh pair
//   - AuthAPI: Login, logout and current-user calls
//   - IntegrationsAPI: Connector listing, sync start and sync progress
//   - ChatAPI: Chat sessions and the streamed answer endpoint
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - ChatStore: Local transcript persistence. Without it, history is not kept.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
