// Package id generates the identifiers used by mediatree: stored-file tokens,
// ad identities, and stable diagram node ids for ad sets.
package id

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	hexAlphabet = "0123456789abcdef"

	// AdIDLength is the length of an ad identifier (32 bits of entropy).
	AdIDLength = 8

	// nodeIDLength is how many hex characters of the UUIDv5 make up a node id.
	nodeIDLength = 8

	// NodePrefix prefixes every ad set diagram node id.
	NodePrefix = "adset_"
)

// FileToken returns a 32 character lowercase hex token derived from a random
// 128-bit UUID. Used as the stored filename stem for uploads.
func FileToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// AdID returns a short 8 character hex token for ad identities.
//
// Collisions are possible (32 bits) so callers that need document-wide
// uniqueness should use UniqueAdID.
func AdID() string {
	token, err := gonanoid.Generate(hexAlphabet, AdIDLength)
	if err != nil {
		// Entropy failure in nanoid; uuid panics on its own entropy failure,
		// so generation as a whole cannot return an error.
		return FileToken()[:AdIDLength]
	}
	return token
}

// UniqueAdID returns an AdID for which exists reports false.
func UniqueAdID(exists func(string) bool) string {
	for {
		candidate := AdID()
		if exists == nil || !exists(candidate) {
			return candidate
		}
	}
}

// NodeID returns the deterministic diagram node id for an ad set name.
// The same name always yields the same id: "adset_" followed by the first
// eight hex characters of UUIDv5(NameSpaceDNS, name).
func NodeID(adSetName string) string {
	u := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(adSetName))
	return NodePrefix + hex.EncodeToString(u[:])[:nodeIDLength]
}

// Generate creates a prefixed unique ID using NanoID, e.g. "sse-V1StGXR8_Z5jdHi6B-myT".
// Used for transient identifiers such as event stream clients.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
