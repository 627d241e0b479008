package gateway

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgate/solgate/pkg/common"
)

const (
	tokenProgramId  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	systemProgramId = "11111111111111111111111111111111"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type accountMetaResponse struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

type instructionResponse struct {
	ProgramId       string                `json:"program_id"`
	Accounts        []accountMetaResponse `json:"accounts"`
	InstructionData string                `json:"instruction_data"`
}

func execute(t *testing.T, server *Server, path, body string) (int, apiResponse) {
	handler, ok := server.GetHandlers()[path]
	require.True(t, ok)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, "application/json", rr.Header().Get("content-type"))

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func executeForInstruction(t *testing.T, server *Server, path, body string) instructionResponse {
	statusCode, resp := execute(t, server, path, body)
	require.Equal(t, http.StatusOK, statusCode)
	require.True(t, resp.Success)
	require.Empty(t, resp.Error)

	var instruction instructionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &instruction))
	return instruction
}

func executeForError(t *testing.T, server *Server, path, body string) string {
	statusCode, resp := execute(t, server, path, body)
	require.Equal(t, http.StatusBadRequest, statusCode)
	require.False(t, resp.Success)
	require.Nil(t, resp.Data)
	return resp.Error
}

func generatePubkeys(t *testing.T, amount int) []string {
	pubkeys := make([]string, amount)
	for i := 0; i < amount; i++ {
		account, err := common.NewRandomAccount()
		require.NoError(t, err)
		pubkeys[i] = account.PublicKey().ToBase58()
	}
	return pubkeys
}

func findOffCurvePubkey(t *testing.T) string {
	for i := 0; i < 128; i++ {
		account, err := common.NewRandomAccount()
		require.NoError(t, err)

		mutated := make([]byte, ed25519.PublicKeySize)
		copy(mutated, account.PublicKey().ToBytes())
		mutated[0] ^= byte(i + 1)

		candidate, err := common.NewAccountFromPublicKeyBytes(mutated)
		require.NoError(t, err)
		if !candidate.IsOnCurve() {
			return candidate.PublicKey().ToBase58()
		}
	}

	require.FailNow(t, "no off-curve pubkey found")
	return ""
}

func TestGenerateKeypair(t *testing.T) {
	statusCode, resp := execute(t, NewServer(), keypairPath, "")
	require.Equal(t, http.StatusOK, statusCode)
	require.True(t, resp.Success)

	var keypair struct {
		Pubkey string `json:"pubkey"`
		Secret string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &keypair))

	publicKeyBytes, err := base58.Decode(keypair.Pubkey)
	require.NoError(t, err)
	assert.Len(t, publicKeyBytes, ed25519.PublicKeySize)

	secretBytes, err := base64.StdEncoding.DecodeString(keypair.Secret)
	require.NoError(t, err)
	require.Len(t, secretBytes, ed25519.PrivateKeySize)

	// secret is seed ++ public key
	assert.EqualValues(t, publicKeyBytes, secretBytes[ed25519.SeedSize:])
}

func TestGenerateKeypair_InjectedEntropy(t *testing.T) {
	seed := bytes.Repeat([]byte{1}, ed25519.SeedSize)
	server := NewServerWithEntropy(bytes.NewReader(seed))

	statusCode, resp := execute(t, server, keypairPath, "")
	require.Equal(t, http.StatusOK, statusCode)
	require.True(t, resp.Success)

	var keypair struct {
		Pubkey string `json:"pubkey"`
		Secret string `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &keypair))

	expected := ed25519.NewKeyFromSeed(seed)
	assert.Equal(t, base64.StdEncoding.EncodeToString(expected), keypair.Secret)
	assert.Equal(t, base58.Encode(expected.Public().(ed25519.PublicKey)), keypair.Pubkey)
}

func TestGenerateKeypair_Distinct(t *testing.T) {
	server := NewServer()

	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		_, resp := execute(t, server, keypairPath, "")
		require.True(t, resp.Success)

		var keypair struct {
			Pubkey string `json:"pubkey"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &keypair))

		_, ok := seen[keypair.Pubkey]
		require.False(t, ok)
		seen[keypair.Pubkey] = struct{}{}
	}
}

func TestCreateToken(t *testing.T) {
	pubkeys := generatePubkeys(t, 2)
	mintAuthority, mint := pubkeys[0], pubkeys[1]

	body := fmt.Sprintf(`{"mintAuthority": %q, "mint": %q, "decimals": 6}`, mintAuthority, mint)
	instruction := executeForInstruction(t, NewServer(), createTokenPath, body)

	assert.Equal(t, tokenProgramId, instruction.ProgramId)

	require.Len(t, instruction.Accounts, 2)
	assert.Equal(t, accountMetaResponse{Pubkey: mint, IsSigner: false, IsWritable: true}, instruction.Accounts[0])
	assert.Equal(t, accountMetaResponse{Pubkey: mintAuthority, IsSigner: true, IsWritable: false}, instruction.Accounts[1])

	data, err := base64.StdEncoding.DecodeString(instruction.InstructionData)
	require.NoError(t, err)
	require.Len(t, data, 35)
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, byte(6), data[1])
	authorityBytes, err := base58.Decode(mintAuthority)
	require.NoError(t, err)
	assert.Equal(t, authorityBytes, data[2:34])
	assert.Equal(t, byte(0), data[34])
}

func TestCreateToken_Validation(t *testing.T) {
	pubkeys := generatePubkeys(t, 2)

	err := executeForError(t, NewServer(), createTokenPath,
		fmt.Sprintf(`{"mintAuthority": "not-a-key", "mint": %q, "decimals": 6}`, pubkeys[1]))
	assert.Equal(t, "Invalid mintAuthority pubkey", err)

	err = executeForError(t, NewServer(), createTokenPath,
		fmt.Sprintf(`{"mintAuthority": %q, "mint": "not-a-key", "decimals": 6}`, pubkeys[0]))
	assert.Equal(t, "Invalid mint pubkey", err)

	// missing fields fail on the first address
	err = executeForError(t, NewServer(), createTokenPath, `{}`)
	assert.Equal(t, "Invalid mintAuthority pubkey", err)
}

func TestMintToken(t *testing.T) {
	pubkeys := generatePubkeys(t, 2)
	destination, authority := pubkeys[0], pubkeys[1]

	body := fmt.Sprintf(
		`{"mint": %q, "destination": %q, "authority": %q, "amount": 1000}`,
		systemProgramId, destination, authority,
	)
	instruction := executeForInstruction(t, NewServer(), mintTokenPath, body)

	assert.Equal(t, tokenProgramId, instruction.ProgramId)

	require.Len(t, instruction.Accounts, 3)
	assert.Equal(t, accountMetaResponse{Pubkey: systemProgramId, IsSigner: false, IsWritable: true}, instruction.Accounts[0])
	assert.Equal(t, accountMetaResponse{Pubkey: destination, IsSigner: false, IsWritable: true}, instruction.Accounts[1])
	assert.Equal(t, accountMetaResponse{Pubkey: authority, IsSigner: true, IsWritable: false}, instruction.Accounts[2])

	data, err := base64.StdEncoding.DecodeString(instruction.InstructionData)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0xE8, 0x03, 0, 0, 0, 0, 0, 0}, data)
}

func TestMintToken_ZeroAmountAllowed(t *testing.T) {
	pubkeys := generatePubkeys(t, 3)

	body := fmt.Sprintf(
		`{"mint": %q, "destination": %q, "authority": %q, "amount": 0}`,
		pubkeys[0], pubkeys[1], pubkeys[2],
	)
	instruction := executeForInstruction(t, NewServer(), mintTokenPath, body)

	data, err := base64.StdEncoding.DecodeString(instruction.InstructionData)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0, 0}, data)
}

func TestMintToken_Validation(t *testing.T) {
	pubkeys := generatePubkeys(t, 3)

	err := executeForError(t, NewServer(), mintTokenPath,
		fmt.Sprintf(`{"mint": "x", "destination": %q, "authority": %q, "amount": 1}`, pubkeys[1], pubkeys[2]))
	assert.Equal(t, "Invalid mint pubkey", err)

	err = executeForError(t, NewServer(), mintTokenPath,
		fmt.Sprintf(`{"mint": %q, "destination": "x", "authority": %q, "amount": 1}`, pubkeys[0], pubkeys[2]))
	assert.Equal(t, "Invalid destination pubkey", err)

	err = executeForError(t, NewServer(), mintTokenPath,
		fmt.Sprintf(`{"mint": %q, "destination": %q, "authority": "x", "amount": 1}`, pubkeys[0], pubkeys[1]))
	assert.Equal(t, "Invalid authority pubkey", err)
}

func TestSendSol(t *testing.T) {
	pubkeys := generatePubkeys(t, 2)
	from, to := pubkeys[0], pubkeys[1]

	body := fmt.Sprintf(`{"from": %q, "to": %q, "lamports": 1000}`, from, to)
	instruction := executeForInstruction(t, NewServer(), sendSolPath, body)

	assert.Equal(t, systemProgramId, instruction.ProgramId)

	require.Len(t, instruction.Accounts, 2)
	assert.Equal(t, accountMetaResponse{Pubkey: from, IsSigner: true, IsWritable: true}, instruction.Accounts[0])
	assert.Equal(t, accountMetaResponse{Pubkey: to, IsSigner: false, IsWritable: true}, instruction.Accounts[1])

	data, err := base64.StdEncoding.DecodeString(instruction.InstructionData)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0xE8, 0x03, 0, 0, 0, 0, 0, 0}, data)
}

func TestSendSol_Validation(t *testing.T) {
	pubkeys := generatePubkeys(t, 2)

	err := executeForError(t, NewServer(), sendSolPath,
		fmt.Sprintf(`{"from": "x", "to": %q, "lamports": 1}`, pubkeys[1]))
	assert.Equal(t, "Invalid sender pubkey", err)

	err = executeForError(t, NewServer(), sendSolPath,
		fmt.Sprintf(`{"from": %q, "to": "x", "lamports": 1}`, pubkeys[0]))
	assert.Equal(t, "Invalid recipient pubkey", err)

	err = executeForError(t, NewServer(), sendSolPath,
		fmt.Sprintf(`{"from": %q, "to": %q, "lamports": 0}`, pubkeys[0], pubkeys[1]))
	assert.Equal(t, "Lamports must be greater than zero", err)
}

func TestSendToken(t *testing.T) {
	pubkeys := generatePubkeys(t, 3)
	destination, mint, owner := pubkeys[0], pubkeys[1], pubkeys[2]

	body := fmt.Sprintf(
		`{"destination": %q, "mint": %q, "owner": %q, "amount": 512}`,
		destination, mint, owner,
	)
	instruction := executeForInstruction(t, NewServer(), sendTokenPath, body)

	assert.Equal(t, tokenProgramId, instruction.ProgramId)

	require.Len(t, instruction.Accounts, 3)
	assert.Equal(t, accountMetaResponse{Pubkey: destination, IsSigner: false, IsWritable: false}, instruction.Accounts[0])
	assert.Equal(t, accountMetaResponse{Pubkey: mint, IsSigner: false, IsWritable: false}, instruction.Accounts[1])
	assert.Equal(t, accountMetaResponse{Pubkey: owner, IsSigner: true, IsWritable: false}, instruction.Accounts[2])

	data, err := base64.StdEncoding.DecodeString(instruction.InstructionData)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 2, 0, 0, 0, 0, 0, 0}, data)
}

func TestSendToken_Validation(t *testing.T) {
	pubkeys := generatePubkeys(t, 3)

	err := executeForError(t, NewServer(), sendTokenPath,
		fmt.Sprintf(`{"destination": "x", "mint": %q, "owner": %q, "amount": 1}`, pubkeys[1], pubkeys[2]))
	assert.Equal(t, "Invalid destination pubkey", err)

	err = executeForError(t, NewServer(), sendTokenPath,
		fmt.Sprintf(`{"destination": %q, "mint": "x", "owner": %q, "amount": 1}`, pubkeys[0], pubkeys[2]))
	assert.Equal(t, "Invalid mint pubkey", err)

	err = executeForError(t, NewServer(), sendTokenPath,
		fmt.Sprintf(`{"destination": %q, "mint": %q, "owner": "x", "amount": 1}`, pubkeys[0], pubkeys[1]))
	assert.Equal(t, "Invalid owner pubkey", err)

	err = executeForError(t, NewServer(), sendTokenPath,
		fmt.Sprintf(`{"destination": %q, "mint": %q, "owner": %q, "amount": 0}`, pubkeys[0], pubkeys[1], pubkeys[2]))
	assert.Equal(t, "Amount must be greater than zero", err)
}

func TestVerifyMessage(t *testing.T) {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)

	message := "hello solana"
	signature, err := account.Sign([]byte(message))
	require.NoError(t, err)

	body := fmt.Sprintf(
		`{"message": %q, "signature": %q, "pubkey": %q}`,
		message, base64.StdEncoding.EncodeToString(signature), account.PublicKey().ToBase58(),
	)

	statusCode, resp := execute(t, NewServer(), verifyMessagePath, body)
	require.Equal(t, http.StatusOK, statusCode)
	require.True(t, resp.Success)

	var result struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
		Pubkey  string `json:"pubkey"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.True(t, result.Valid)
	assert.Equal(t, message, result.Message)
	assert.Equal(t, account.PublicKey().ToBase58(), result.Pubkey)
}

func TestVerifyMessage_InvalidSignatureIsNotAnError(t *testing.T) {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)

	message := "hello solana"
	signature, err := account.Sign([]byte(message))
	require.NoError(t, err)

	var result struct {
		Valid bool `json:"valid"`
	}

	// bit flip in the signature
	mutated := make([]byte, len(signature))
	copy(mutated, signature)
	mutated[0] ^= 1

	body := fmt.Sprintf(
		`{"message": %q, "signature": %q, "pubkey": %q}`,
		message, base64.StdEncoding.EncodeToString(mutated), account.PublicKey().ToBase58(),
	)
	statusCode, resp := execute(t, NewServer(), verifyMessagePath, body)
	require.Equal(t, http.StatusOK, statusCode)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.False(t, result.Valid)

	// different message
	body = fmt.Sprintf(
		`{"message": %q, "signature": %q, "pubkey": %q}`,
		"another message", base64.StdEncoding.EncodeToString(signature), account.PublicKey().ToBase58(),
	)
	statusCode, resp = execute(t, NewServer(), verifyMessagePath, body)
	require.Equal(t, http.StatusOK, statusCode)
	require.True(t, resp.Success)
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.False(t, result.Valid)
}

func TestVerifyMessage_Validation(t *testing.T) {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)

	signature, err := account.Sign([]byte("message"))
	require.NoError(t, err)
	encodedSignature := base64.StdEncoding.EncodeToString(signature)

	err2 := executeForError(t, NewServer(), verifyMessagePath,
		fmt.Sprintf(`{"message": "message", "signature": %q, "pubkey": "not-base58-0OIl"}`, encodedSignature))
	assert.Equal(t, "Invalid base58 pubkey", err2)

	// valid base58, but not 32 bytes
	err2 = executeForError(t, NewServer(), verifyMessagePath,
		fmt.Sprintf(`{"message": "message", "signature": %q, "pubkey": %q}`, encodedSignature, base58.Encode(make([]byte, 31))))
	assert.Equal(t, "Invalid public key bytes", err2)

	// 32 bytes, but not a valid curve point
	err2 = executeForError(t, NewServer(), verifyMessagePath,
		fmt.Sprintf(`{"message": "message", "signature": %q, "pubkey": %q}`, encodedSignature, findOffCurvePubkey(t)))
	assert.Equal(t, "Invalid public key bytes", err2)

	err2 = executeForError(t, NewServer(), verifyMessagePath,
		fmt.Sprintf(`{"message": "message", "signature": "$$$not-base64$$$", "pubkey": %q}`, account.PublicKey().ToBase58()))
	assert.Equal(t, "Invalid base64 signature", err2)

	// valid base64, but not 64 bytes
	err2 = executeForError(t, NewServer(), verifyMessagePath,
		fmt.Sprintf(`{"message": "message", "signature": %q, "pubkey": %q}`,
			base64.StdEncoding.EncodeToString(signature[:32]), account.PublicKey().ToBase58()))
	assert.Equal(t, "Invalid signature bytes", err2)
}

func TestPostMethodRequired(t *testing.T) {
	for path, handler := range NewServer().GetHandlers() {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var resp apiResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "http post expected", resp.Error)
	}
}

func TestMalformedJson(t *testing.T) {
	for _, path := range []string{createTokenPath, mintTokenPath, sendSolPath, sendTokenPath, verifyMessagePath} {
		statusCode, resp := execute(t, NewServer(), path, "{not json")
		assert.Equal(t, http.StatusBadRequest, statusCode)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	}
}
