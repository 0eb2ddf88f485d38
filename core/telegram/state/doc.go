// Package state keeps per-user conversation sessions in memory.
//
// A manager owns its state-to-handler table, so tests and several bots in one
// process never share routing. Sessions are lost on restart.
package state
