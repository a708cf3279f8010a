// Package publishing orchestrates paid content publication across two
// external systems of record: a content-addressed store for article bytes
// and a ledger for ownership, pricing and access grants.
//
// It exposes a single Service interface covering the publish workflow
// (upload, register, confirm), the purchase workflow (pay, confirm, verify
// entitlement), grant and patronage writes, and the read side: per-article
// entitlement resolution, gated content reads, and the catalog that
// partitions every known article into public, owned and locked for one
// viewer. Implementations of the ledger (memory, Postgres) and the content
// store (memory, S3, Pinata-compatible IPFS pinning) are provided under
// subpackages.
//
// Consistency Model
//
// The core owns no durable storage. A ledger write is trusted only after its
// handle has been awaited to confirmation; the in-memory catalog cache is the
// only shared mutable state and is invalidated wholesale on every confirmed
// write. A failure between a successful upload and a confirmed registration
// is surfaced as an OrphanedContentError carrying the content id so the
// registration can be retried without re-uploading.
package publishing
