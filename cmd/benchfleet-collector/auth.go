// Copyright 2026 The Benchfleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/subtle"

	"github.com/zeebo/blake3"
)

// DefaultSecret is the built-in shared secret used when the operator
// configures none. Deployments exposed beyond a trusted network must
// override it; main() warns when it is in effect.
const DefaultSecret = "password12345"

// secretDomainKey is the BLAKE3 keyed-hash domain for credential
// hashing. The byte value is the ASCII domain name zero-padded to 32
// bytes — readable in hex dumps, opaque to the hash.
var secretDomainKey = [32]byte{
	'b', 'e', 'n', 'c', 'h', 'f', 'l', 'e', 'e', 't', '.',
	'c', 'o', 'l', 'l', 'e', 'c', 't', 'o', 'r', '.',
	's', 'e', 'c', 'r', 'e', 't', 0, 0, 0, 0, 0,
}

// AuthGate validates the credential presented on every inbound
// request. The shared secret is hashed once at construction; each
// candidate is hashed with the same keyed function and compared in
// constant time. A failed check is an ordinary unauthorized outcome,
// never a fault.
type AuthGate struct {
	hashed [32]byte
}

// NewAuthGate creates a gate for the given shared secret. An empty
// secret selects DefaultSecret.
func NewAuthGate(secret string) *AuthGate {
	if secret == "" {
		secret = DefaultSecret
	}
	return &AuthGate{hashed: hashCredential(secret)}
}

// Check reports whether credential matches the configured secret.
func (g *AuthGate) Check(credential string) bool {
	candidate := hashCredential(credential)
	return subtle.ConstantTimeCompare(g.hashed[:], candidate[:]) == 1
}

func hashCredential(credential string) [32]byte {
	hasher, err := blake3.NewKeyed(secretDomainKey[:])
	if err != nil {
		// NewKeyed only fails on a key that is not 32 bytes; the
		// domain key is a fixed-size array.
		panic(err)
	}
	hasher.Write([]byte(credential))
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
