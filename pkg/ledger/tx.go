package ledger

import (
	"encoding/binary"
	"encoding/json"
	"time"
)

// Well-known program addresses.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	ComputeBudgetProgramID   = "ComputeBudget111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// AccountMeta references an account an instruction touches.
type AccountMeta struct {
	Address  string `json:"address"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// Instruction is one directive in a transaction.
type Instruction struct {
	ProgramID string        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// UnsignedTransaction is the unit handed to the external wallet for signing.
// CreatedAt supports the advisory age check before submission.
type UnsignedTransaction struct {
	FeePayer     string        `json:"fee_payer"`
	Blockhash    Blockhash     `json:"blockhash"`
	Instructions []Instruction `json:"instructions"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Message serializes the transaction content for signing. The encoding only
// needs to be deterministic; the remote collaborator treats it as opaque.
func (t *UnsignedTransaction) Message() []byte {
	raw, err := json.Marshal(t)
	if err != nil {
		// All fields are plain data; marshal cannot fail at runtime.
		panic("ledger: marshal unsigned transaction: " + err.Error())
	}
	return raw
}

// NewTransferInstruction builds the core native transfer directive.
func NewTransferInstruction(from, to string, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2) // system transfer
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Address: from, Signer: true, Writable: true},
			{Address: to, Writable: true},
		},
		Data: data,
	}
}

// NewComputeUnitLimitInstruction caps the compute units a transaction may use.
func NewComputeUnitLimitInstruction(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 2 // set compute unit limit
	binary.LittleEndian.PutUint32(data[1:5], units)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// NewComputeUnitPriceInstruction sets the priority fee in micro-lamports.
func NewComputeUnitPriceInstruction(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3 // set compute unit price
	binary.LittleEndian.PutUint64(data[1:9], microLamports)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// NewTokenTransferInstruction moves tokens between token accounts.
func NewTokenTransferInstruction(source, destination, owner string, amount uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3 // token transfer
	binary.LittleEndian.PutUint64(data[1:9], amount)

	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Address: source, Writable: true},
			{Address: destination, Writable: true},
			{Address: owner, Signer: true},
		},
		Data: data,
	}
}

// NewCreateTokenAccountInstruction creates the destination's associated token
// account when it does not exist yet.
func NewCreateTokenAccountInstruction(payer, tokenAccount, owner, mint string) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Address: payer, Signer: true, Writable: true},
			{Address: tokenAccount, Writable: true},
			{Address: owner},
			{Address: mint},
			{Address: SystemProgramID},
			{Address: TokenProgramID},
		},
	}
}
