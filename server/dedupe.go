// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/go-json-experiment/json/jsontext"
)

// canonicalJSON serializes with sorted object keys so that two payloads that
// differ only in member order produce the same fingerprint.
var canonicalJSON = sonic.Config{SortMapKeys: true}.Froze()

// Fingerprint returns a stable hash of a JSON payload, insensitive to object
// member ordering. Payloads that fail canonicalization hash their raw bytes.
func Fingerprint(raw jsontext.Value) uint64 {
	var decoded any
	if err := canonicalJSON.Unmarshal(raw, &decoded); err != nil {
		return xxhash.Sum64(raw)
	}
	canonical, err := canonicalJSON.Marshal(decoded)
	if err != nil {
		return xxhash.Sum64(raw)
	}
	return xxhash.Sum64(canonical)
}

// ResultDeduplicator decides whether a result payload has been processed
// before. ShouldProcess and MarkProcessed are deliberately separate: a
// payload is marked only after it was stored successfully, so a failed store
// can be retried with the same payload.
type ResultDeduplicator interface {
	ShouldProcess(raw jsontext.Value) bool
	MarkProcessed(raw jsontext.Value)
}

// HashDeduplicator is a [ResultDeduplicator] backed by an unbounded set of
// payload fingerprints.
type HashDeduplicator struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

var _ ResultDeduplicator = (*HashDeduplicator)(nil)

// NewHashDeduplicator creates an empty HashDeduplicator.
func NewHashDeduplicator() *HashDeduplicator {
	return &HashDeduplicator{seen: make(map[uint64]struct{})}
}

// ShouldProcess implements [ResultDeduplicator].
func (d *HashDeduplicator) ShouldProcess(raw jsontext.Value) bool {
	fp := Fingerprint(raw)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, dup := d.seen[fp]
	return !dup
}

// MarkProcessed implements [ResultDeduplicator].
func (d *HashDeduplicator) MarkProcessed(raw jsontext.Value) {
	fp := Fingerprint(raw)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[fp] = struct{}{}
}

// DeduplicatingPipeline wraps a [ResultSink] so that a payload already
// processed is silently skipped. The check and the mark are not one atomic
// step: two concurrent stores of the same payload can both pass the check,
// and the store's own idempotence absorbs the double write.
type DeduplicatingPipeline struct {
	inner ResultSink
	dedup ResultDeduplicator
}

var _ ResultSink = (*DeduplicatingPipeline)(nil)

// NewDeduplicatingPipeline wraps inner with dedup.
func NewDeduplicatingPipeline(inner ResultSink, dedup ResultDeduplicator) *DeduplicatingPipeline {
	return &DeduplicatingPipeline{inner: inner, dedup: dedup}
}

// StoreResult implements [ResultSink].
func (p *DeduplicatingPipeline) StoreResult(ctx context.Context, raw jsontext.Value) error {
	if !p.dedup.ShouldProcess(raw) {
		return nil
	}
	if err := p.inner.StoreResult(ctx, raw); err != nil {
		return err
	}
	p.dedup.MarkProcessed(raw)
	return nil
}
