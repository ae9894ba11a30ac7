// Package cli implements the focusforge command: it wires configuration,
// logging, the credential store, the API client and the session manager,
// then runs one subcommand.
package cli
