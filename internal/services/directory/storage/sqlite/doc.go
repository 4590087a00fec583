// Package sqlite provides a SQLite-backed store for the chat directory.
//
// It persists chats, memberships, messages, invites, and the admin action
// log, and exposes a transactional view so authorization checks and the
// writes they guard commit together.
package sqlite
