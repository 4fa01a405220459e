// Package state implements the per-(user, chat) conversation state machine:
// a Session value persisted through a Store, and a Machine that routes the
// next input to the handler registered for the session's current state.
package state
