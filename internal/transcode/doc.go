// Package transcode defines the contract every compression plugin
// implements and the registry that negotiates which plugin handles a file.
//
// A Transcoder answers CanHandle without touching the filesystem and
// performs its rewrite only in Process. Process either fully replaces the
// source or leaves it exactly as it was; it never returns with a partially
// written result in place.
//
// The Registry keeps transcoders in registration order, which is the
// default priority. Callers may pass a preferred order of plugin names;
// unknown or declining names are skipped and the registry falls back to
// registration order.
package transcode
