package store

import "time"

// EventEmitter is the interface for broadcasting document changes.
// Store uses this to announce saves without depending on the SSE
// implementation.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// ChangeKind names what a saved change did.
type ChangeKind string

// Change kinds emitted after successful saves.
const (
	ChangeCampaignUpdated  ChangeKind = "campaign.updated"
	ChangeAdSetCreated     ChangeKind = "ad_set.created"
	ChangeAdSetDeleted     ChangeKind = "ad_set.deleted"
	ChangeAdCreated        ChangeKind = "ad.created"
	ChangeAdUpdated        ChangeKind = "ad.updated"
	ChangeAdDeleted        ChangeKind = "ad.deleted"
	ChangeAdMoved          ChangeKind = "ad.moved"
	ChangeTagsAdded        ChangeKind = "ad_set.tags_added"
	ChangeDocumentReplaced ChangeKind = "document.replaced"
	ChangeDocumentReloaded ChangeKind = "document.reloaded"
)

// Change describes one persisted modification of the document.
type Change struct {
	At      time.Time  `json:"at"`
	Kind    ChangeKind `json:"kind"`
	AdSet   string     `json:"ad_set,omitempty"`
	AdID    string     `json:"ad_id,omitempty"`
	ToAdSet string     `json:"to_ad_set,omitempty"`
}
