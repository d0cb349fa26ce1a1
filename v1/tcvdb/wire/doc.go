// Package wire defines the JSON messages exchanged with the vector database
// service and the codec that reads and writes them.
//
// Every response carries the same status triple (code, msg, redirect). It is
// decoded on its own by [DecodeStatus] so the dispatcher can decide between
// success, redirect and failure without knowing the payload type, and in full
// by [Decode] into an [Envelope].
//
// Document field values use a oneof encoding, see [FieldValue]. Members the
// package does not know are kept in [Unknown] maps on documents, field values
// and envelopes, and written back unchanged on encode.
package wire
