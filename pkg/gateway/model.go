package gateway

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/solgate/solgate/pkg/common"
)

type createMintRequest struct {
	mintAuthority *common.Account
	mint          *common.Account
	decimals      byte
}

func newCreateMintRequestFromHttpContext(r *http.Request) (*createMintRequest, error) {
	httpRequestBody := struct {
		MintAuthority string `json:"mintAuthority"`
		Mint          string `json:"mint"`
		Decimals      uint8  `json:"decimals"`
	}{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &httpRequestBody)
	if err != nil {
		return nil, err
	}

	mintAuthority, err := common.NewAccountFromPublicKeyString(httpRequestBody.MintAuthority)
	if err != nil {
		return nil, errors.New("Invalid mintAuthority pubkey")
	}

	mint, err := common.NewAccountFromPublicKeyString(httpRequestBody.Mint)
	if err != nil {
		return nil, errors.New("Invalid mint pubkey")
	}

	return &createMintRequest{
		mintAuthority: mintAuthority,
		mint:          mint,
		decimals:      httpRequestBody.Decimals,
	}, nil
}

type mintToRequest struct {
	mint        *common.Account
	destination *common.Account
	authority   *common.Account
	amount      uint64
}

func newMintToRequestFromHttpContext(r *http.Request) (*mintToRequest, error) {
	httpRequestBody := struct {
		Mint        string `json:"mint"`
		Destination string `json:"destination"`
		Authority   string `json:"authority"`
		Amount      uint64 `json:"amount"`
	}{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &httpRequestBody)
	if err != nil {
		return nil, err
	}

	mint, err := common.NewAccountFromPublicKeyString(httpRequestBody.Mint)
	if err != nil {
		return nil, errors.New("Invalid mint pubkey")
	}

	destination, err := common.NewAccountFromPublicKeyString(httpRequestBody.Destination)
	if err != nil {
		return nil, errors.New("Invalid destination pubkey")
	}

	authority, err := common.NewAccountFromPublicKeyString(httpRequestBody.Authority)
	if err != nil {
		return nil, errors.New("Invalid authority pubkey")
	}

	// note: a zero amount is intentionally accepted here, unlike the
	// transfer variants.
	return &mintToRequest{
		mint:        mint,
		destination: destination,
		authority:   authority,
		amount:      httpRequestBody.Amount,
	}, nil
}

type sendSolRequest struct {
	from     *common.Account
	to       *common.Account
	lamports uint64
}

func newSendSolRequestFromHttpContext(r *http.Request) (*sendSolRequest, error) {
	httpRequestBody := struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Lamports uint64 `json:"lamports"`
	}{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &httpRequestBody)
	if err != nil {
		return nil, err
	}

	from, err := common.NewAccountFromPublicKeyString(httpRequestBody.From)
	if err != nil {
		return nil, errors.New("Invalid sender pubkey")
	}

	to, err := common.NewAccountFromPublicKeyString(httpRequestBody.To)
	if err != nil {
		return nil, errors.New("Invalid recipient pubkey")
	}

	if httpRequestBody.Lamports == 0 {
		return nil, errors.New("Lamports must be greater than zero")
	}

	return &sendSolRequest{
		from:     from,
		to:       to,
		lamports: httpRequestBody.Lamports,
	}, nil
}

type sendTokenRequest struct {
	destination *common.Account
	mint        *common.Account
	owner       *common.Account
	amount      uint64
}

func newSendTokenRequestFromHttpContext(r *http.Request) (*sendTokenRequest, error) {
	httpRequestBody := struct {
		Destination string `json:"destination"`
		Mint        string `json:"mint"`
		Owner       string `json:"owner"`
		Amount      uint64 `json:"amount"`
	}{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &httpRequestBody)
	if err != nil {
		return nil, err
	}

	destination, err := common.NewAccountFromPublicKeyString(httpRequestBody.Destination)
	if err != nil {
		return nil, errors.New("Invalid destination pubkey")
	}

	mint, err := common.NewAccountFromPublicKeyString(httpRequestBody.Mint)
	if err != nil {
		return nil, errors.New("Invalid mint pubkey")
	}

	owner, err := common.NewAccountFromPublicKeyString(httpRequestBody.Owner)
	if err != nil {
		return nil, errors.New("Invalid owner pubkey")
	}

	if httpRequestBody.Amount == 0 {
		return nil, errors.New("Amount must be greater than zero")
	}

	return &sendTokenRequest{
		destination: destination,
		mint:        mint,
		owner:       owner,
		amount:      httpRequestBody.Amount,
	}, nil
}

type verifyMessageRequest struct {
	message   string
	signature []byte
	pubkey    *common.Account
}

func newVerifyMessageRequestFromHttpContext(r *http.Request) (*verifyMessageRequest, error) {
	httpRequestBody := struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
		Pubkey    string `json:"pubkey"`
	}{}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &httpRequestBody)
	if err != nil {
		return nil, err
	}

	pubkeyBytes, err := base58.Decode(httpRequestBody.Pubkey)
	if err != nil {
		return nil, errors.New("Invalid base58 pubkey")
	}

	pubkey, err := common.NewAccountFromPublicKeyBytes(pubkeyBytes)
	if err != nil || !pubkey.IsOnCurve() {
		return nil, errors.New("Invalid public key bytes")
	}

	signature, err := base64.StdEncoding.DecodeString(httpRequestBody.Signature)
	if err != nil {
		return nil, errors.New("Invalid base64 signature")
	}

	if len(signature) != ed25519.SignatureSize {
		return nil, errors.New("Invalid signature bytes")
	}

	return &verifyMessageRequest{
		message:   httpRequestBody.Message,
		signature: signature,
		pubkey:    pubkey,
	}, nil
}
