// Package ident implements the hierarchical identifiers used across a
// federation.
//
// Every entity is addressed by a short composite string
//
//  {handle}:{discriminator}:{id};
//
// where the discriminator encodes the entity kind (F, O or OU), the id is a
// fixed-length random alphanumeric token, and the handle is a caller-chosen
// label. Identifiers of nested entities can be written in three scopes: the
// local form above, the parent-inclusive form which prefixes the parent's local
// form, and the global form which spells out the whole chain starting at the
// Federation. Segments are separated by a single space.
//
// The scope of a serialized identifier is never written down. It is recovered
// from the length of the string alone, using the handle and id lengths allowed
// for each kind, so all of the range arithmetic lives in a static table and the
// functions that read it are pure.
package ident
