package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "borrowck/program/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash computes the content-addressed identity of a trace program.
// Two programs with the same name and operation sequence always hash the
// same, across processes and platforms. The hash keys the run log: replaying
// a recorded run requires finding the exact program that produced it.
func ProgramHash(p *Program) (string, error) {
	ops := make([]any, len(p.Ops))
	for i, op := range p.Ops {
		ops[i] = opCanonicalMap(op)
	}

	canonical, err := MarshalCanonical(map[string]any{
		"name": p.Name,
		"ops":  ops,
	})
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainProgram, canonical), nil
}

// MustProgramHash is like ProgramHash but panics on error.
// Use only in tests or when the program is known to be valid.
func MustProgramHash(p *Program) string {
	h, err := ProgramHash(p)
	if err != nil {
		panic(err)
	}
	return h
}

// opCanonicalMap flattens an operation to its canonical map form. Only the
// fields meaningful for the op kind are included, so adding a new optional
// field to Operation does not silently change existing hashes.
func opCanonicalMap(op Operation) map[string]any {
	m := map[string]any{"op": string(op.Kind)}
	switch op.Kind {
	case OpDeclare:
		m["name"] = op.Name
		m["value"] = op.Value
		m["mutable"] = op.Mutable
		m["interior_mutable"] = op.InteriorMutable
	case OpBorrow:
		m["from"] = op.From
		m["kind"] = string(op.BorrowKind)
		m["as"] = op.As
	case OpReborrow:
		m["ptr"] = op.Ptr
		m["kind"] = string(op.BorrowKind)
		m["as"] = op.As
	case OpCastInt:
		m["ptr"] = op.Ptr
		m["as"] = op.As
	case OpRead, OpExternCall:
		m["ptr"] = op.Ptr
	case OpWrite:
		m["ptr"] = op.Ptr
		m["value"] = op.Value
	}
	return m
}
