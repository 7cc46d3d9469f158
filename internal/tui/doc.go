// Package tui is the terminal dashboard for the access console. It renders
// the view store, lets the operator arm a scan, refresh, and delete cards,
// and shows the console's notifications and confirmation prompts.
//
// The console engine talks to the dashboard through a Bridge, which turns
// notifications, view changes and confirmation requests into bubbletea
// messages.
package tui
