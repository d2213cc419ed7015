// Package ui implements the interactive terminal views using bubbletea's Elm architecture.
//
// Two programs are provided:
//  1. [ReorderModel] : Rearrange a playlist's media with J/K; the order is saved once moves stop
//  2. [UploadModel] : Follow one upload from file selection to publish, with a progress bar
//
// Both receive state changes from their controller through a channel drained by a [tea.Cmd],
// so background work never touches the model directly.
//
// Keyboard navigation uses vim-style bindings with contextual help displayed via charmbracelet/bubbles/help.
package ui
