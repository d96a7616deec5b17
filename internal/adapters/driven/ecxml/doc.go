// Package ecxml reads ECSchema XML documents.
//
// It implements the schema host, the header reader and the checksum tool
// on top of github.com/beevik/etree. Only the parts of a document the
// audit needs are modelled: identity, references, the dynamic marker and
// the item and property names used by the default comparer and rules.
package ecxml
