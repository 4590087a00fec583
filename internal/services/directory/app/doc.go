// Package app hosts the directory service: chat, participant, message,
// invite, and search operations, the HTTP and websocket transports, and
// the invite expiry sweeper.
package app
