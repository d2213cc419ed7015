// Package services implements HTTP clients for the media API.
//
// # Client
//
// [Client] wraps the REST resources (media, playlists, channels, profile) and the
// player endpoints that serve playback configuration and manifests. A static bearer
// token, when configured, is attached by an [oauth2.Transport].
//
// Binary transfers use a separate client so the API token never reaches the
// pre-signed upload URL.
//
// # Error Handling
//
// Errors follow the shared sentinels:
//   - [shared.ErrTransport] : the request never produced a response
//   - [shared.ErrAPIRequest] : non-2xx status, carried by [*APIError]
//   - [shared.ErrEmptyResponse] : a manifest with no body
//
// [APIError.FieldErrors] exposes validation errors keyed by field.
//
// # Raw Access
//
// [APIService] performs raw GET and POST calls and returns the undecoded response.
// The `api` command uses it for debugging.
package services
