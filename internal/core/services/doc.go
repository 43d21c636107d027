// Package services implements the driving port interfaces and the core of
// the session client: the request pipeline with its renewal coordinator,
// the progress poller, the stream assembler and the observable session state.
//
// Services depend only on driven ports; transports and stores are adapters.
package services
