// Package domain defines the chat directory entities and the rules that
// govern them: chat kinds, participant roles and bans, message lifecycle,
// invite transitions, and the moderation audit trail.
//
// Constructors take injected clocks and id generators so services and tests
// control time and identity deterministically.
package domain
