package system

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/solgate/solgate/pkg/solana"
)

// ProgramKey is the address of the system program, which is the
// reserved all-zero key.
//
// Base58 form: 11111111111111111111111111111111
var ProgramKey [32]byte

const (
	// nolint:varcheck,deadcode,unused
	commandCreateAccount byte = iota
	// nolint:varcheck,deadcode,unused
	commandAssign
	commandTransfer
)

// Transfer moves lamports between two system accounts.
//
// The discriminant is encoded as a single byte, followed by the
// lamport amount as a little-endian u64, for a fixed 9 byte payload.
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable, signer]` Funding account
	//   1. `[writable]` Recipient account
	data := make([]byte, 1+8)
	data[0] = commandTransfer
	binary.LittleEndian.PutUint64(data[1:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}
