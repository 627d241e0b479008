package gateway

import (
	"encoding/base64"

	"github.com/mr-tron/base58"

	"github.com/solgate/solgate/pkg/solana"
)

// accountMetaView is the canonical account role shape exposed for every
// instruction variant. Ordering matches the instruction's account list.
type accountMetaView struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

type instructionView struct {
	ProgramId       string            `json:"program_id"`
	Accounts        []accountMetaView `json:"accounts"`
	InstructionData string            `json:"instruction_data"`
}

func newInstructionView(instruction solana.Instruction) instructionView {
	accounts := make([]accountMetaView, len(instruction.Accounts))
	for i, account := range instruction.Accounts {
		accounts[i] = accountMetaView{
			Pubkey:     base58.Encode(account.PublicKey),
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		}
	}

	return instructionView{
		ProgramId:       base58.Encode(instruction.Program),
		Accounts:        accounts,
		InstructionData: base64.StdEncoding.EncodeToString(instruction.Data),
	}
}

type keypairView struct {
	Pubkey string `json:"pubkey"`
	Secret string `json:"secret"`
}

type verifyMessageView struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Pubkey  string `json:"pubkey"`
}
