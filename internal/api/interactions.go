package api

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/status-relay/internal/commands"
)

const maxInteractionBody = 1 << 20

// Dispatcher runs an application command and produces its reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, i *commands.Interaction) *commands.Response
}

// InteractionHandler serves Discord's interactions endpoint. Every request
// must carry a valid Ed25519 signature from the application's public key.
type InteractionHandler struct {
	publicKey  ed25519.PublicKey
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewInteractionHandler(publicKeyHex string, dispatcher Dispatcher, logger *slog.Logger) (*InteractionHandler, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &InteractionHandler{publicKey: key, dispatcher: dispatcher, logger: logger}, nil
}

func (h *InteractionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInteractionBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verify(r.Header.Get("X-Signature-Ed25519"), r.Header.Get("X-Signature-Timestamp"), body) {
		respondError(w, http.StatusUnauthorized, "invalid request signature")
		return
	}

	var i commands.Interaction
	if err := json.Unmarshal(body, &i); err != nil {
		respondError(w, http.StatusBadRequest, "invalid interaction")
		return
	}

	switch i.Type {
	case commands.InteractionPing:
		respondJSON(w, http.StatusOK, commands.Pong())
	case commands.InteractionApplicationCommand:
		respondJSON(w, http.StatusOK, h.dispatcher.Dispatch(r.Context(), &i))
	default:
		h.logger.Warn("unsupported interaction type", "type", i.Type, "interaction_id", i.ID)
		respondError(w, http.StatusBadRequest, "unsupported interaction type")
	}
}

func (h *InteractionHandler) verify(signatureHex, timestamp string, body []byte) bool {
	if signatureHex == "" || timestamp == "" {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(h.publicKey, msg, sig)
}
