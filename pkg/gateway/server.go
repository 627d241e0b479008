package gateway

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/solgate/solgate/pkg/common"
	"github.com/solgate/solgate/pkg/solana/system"
	"github.com/solgate/solgate/pkg/solana/token"
)

const (
	keypairPath       = "/keypair"
	createTokenPath   = "/token/create"
	mintTokenPath     = "/token/mint"
	verifyMessagePath = "/message/verify"
	sendSolPath       = "/send/sol"
	sendTokenPath     = "/send/token"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"
)

type Server struct {
	log *logrus.Entry

	// Entropy source for keypair generation. A nil value selects
	// crypto/rand. Substituted under test for determinism.
	entropy io.Reader
}

func NewServer() *Server {
	return &Server{
		log: logrus.StandardLogger().WithField("type", "gateway/server"),
	}
}

// NewServerWithEntropy creates a server that draws key material from the
// provided reader instead of crypto/rand.
func NewServerWithEntropy(entropy io.Reader) *Server {
	server := NewServer()
	server.entropy = entropy
	return server
}

func (s *Server) generateKeypairHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":       path,
			"request_id": uuid.NewString(),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			account, err := common.NewRandomAccountFromReader(s.entropy)
			if err != nil {
				log.WithError(err).Warn("failure generating keypair")
				return http.StatusInternalServerError, NewGenericApiFailureResponseBody(errors.New("internal server error"))
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody[dataJsonKey] = keypairView{
				Pubkey: account.PublicKey().ToBase58(),
				Secret: base64.StdEncoding.EncodeToString(account.PrivateKey().ToBytes()),
			}
			return http.StatusOK, respBody
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) createTokenHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":       path,
			"request_id": uuid.NewString(),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			model, err := newCreateMintRequestFromHttpContext(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			instruction := token.InitializeMint(
				model.mint.PublicKey().ToBytes(),
				model.mintAuthority.PublicKey().ToBytes(),
				model.decimals,
			)

			respBody := NewGenericApiSuccessResponseBody()
			respBody[dataJsonKey] = newInstructionView(instruction)
			return http.StatusOK, respBody
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) mintTokenHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":       path,
			"request_id": uuid.NewString(),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			model, err := newMintToRequestFromHttpContext(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			instruction := token.MintTo(
				model.mint.PublicKey().ToBytes(),
				model.destination.PublicKey().ToBytes(),
				model.authority.PublicKey().ToBytes(),
				model.amount,
			)

			respBody := NewGenericApiSuccessResponseBody()
			respBody[dataJsonKey] = newInstructionView(instruction)
			return http.StatusOK, respBody
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) sendSolHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":       path,
			"request_id": uuid.NewString(),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			model, err := newSendSolRequestFromHttpContext(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			instruction := system.Transfer(
				model.from.PublicKey().ToBytes(),
				model.to.PublicKey().ToBytes(),
				model.lamports,
			)

			respBody := NewGenericApiSuccessResponseBody()
			respBody[dataJsonKey] = newInstructionView(instruction)
			return http.StatusOK, respBody
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) sendTokenHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":       path,
			"request_id": uuid.NewString(),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			model, err := newSendTokenRequestFromHttpContext(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			instruction := token.Transfer(
				model.destination.PublicKey().ToBytes(),
				model.mint.PublicKey().ToBytes(),
				model.owner.PublicKey().ToBytes(),
				model.amount,
			)

			respBody := NewGenericApiSuccessResponseBody()
			respBody[dataJsonKey] = newInstructionView(instruction)
			return http.StatusOK, respBody
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) verifyMessageHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithFields(logrus.Fields{
			"path":       path,
			"request_id": uuid.NewString(),
		})

		statusCode, body := func() (int, GenericApiResponseBody) {
			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			model, err := newVerifyMessageRequestFromHttpContext(r)
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}

			// A signature that doesn't match is a successful call with
			// valid=false, not an error.
			valid := model.pubkey.Verify([]byte(model.message), model.signature)

			respBody := NewGenericApiSuccessResponseBody()
			respBody[dataJsonKey] = verifyMessageView{
				Valid:   valid,
				Message: model.message,
				Pubkey:  model.pubkey.PublicKey().ToBase58(),
			}
			return http.StatusOK, respBody
		}()

		w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
		w.WriteHeader(statusCode)
		if _, err := w.Write([]byte(body.ToString())); err != nil {
			log.WithError(err).Info("failed to write body")
		}
	}
}

func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		keypairPath:       s.generateKeypairHandler(keypairPath),
		createTokenPath:   s.createTokenHandler(createTokenPath),
		mintTokenPath:     s.mintTokenHandler(mintTokenPath),
		verifyMessagePath: s.verifyMessageHandler(verifyMessagePath),
		sendSolPath:       s.sendSolHandler(sendSolPath),
		sendTokenPath:     s.sendTokenHandler(sendTokenPath),
	}
}
