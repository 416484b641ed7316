// Package app contains the core application logic. It wires the document
// store, the runner and the editor server from a Config and runs one of the
// commands (convert, runs, serve), decoupled from any specific entrypoint.
package app
