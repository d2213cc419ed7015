// Package models defines the resources exchanged with the media service and the records mediactl keeps locally.
//
// The package contains three categories of types:
//
// 1. API resources, decoded from the REST API
//   - [MediaItem] : a media item and its download sources
//   - [Playlist] : an ordered collection of media items owned by a channel
//   - [Channel] : the owner of media items and playlists
//   - [Profile] : the signed-in user and the channels they can edit
//   - [UploadEndpoint] : where the binary for a media item should be sent
//   - [ListResponse] : one page of a list endpoint
//
// 2. Player resources, decoded from the UI configuration endpoints
//   - [Collection] : a media item or playlist to build a player configuration for
//   - [PlayerConfiguration] : media items with a pointer to their manifest
//   - [Manifest] : the playable renditions of one media item
//
// 3. Local records, persisted by the repositories package
//   - [UploadRecord] : a journaled upload session
//   - [PlaylistOrder] : the last order written for a playlist
//
// [Fields] is a loosely typed JSON object used for draft edits and PATCH bodies.
package models
