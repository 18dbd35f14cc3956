// Package integrity verifies that the references in a DITA document tree resolve.
//
// Check walks from a root map or topic, extracting reference-bearing elements and
// attributes: xref and link, conref, map references, images, topic references and
// other href attributes. Each reference is bucketed by scope:
//
//   - Local targets must exist on disk; missing ones are Broken.
//   - Peer targets belong to another build and are recorded without a check.
//   - External targets (URLs) are skipped unless external checking is enabled, in
//     which case http(s) targets are probed after the traversal through a bounded
//     worker pool.
//
// Key references (keyref, conkeyref) need a key-definition table the checker does not
// build, so they are always reported as skipped. Fragment identifiers are stripped;
// only file-level existence is verified. Documents are visited once, keyed on their
// canonical path, so reference cycles terminate.
package integrity
