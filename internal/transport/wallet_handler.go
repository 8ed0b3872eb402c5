package transport

import (
	"net/http"

	"foodcourt-be/internal/utils"
	"foodcourt-be/internal/wallet"

	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledger      wallet.Ledger
	signupBonus decimal.Decimal
}

func NewWalletHandler(ledger wallet.Ledger, signupBonus decimal.Decimal) *WalletHandler {
	return &WalletHandler{ledger: ledger, signupBonus: signupBonus}
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireSelf(w, r, "userId")
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, WalletDTO{UserID: actor, Balance: balance})
}

// Open creates the wallet with the signup bonus. Only sibling services may
// call it; repeating the call returns the existing wallet.
func (h *WalletHandler) Open(w http.ResponseWriter, r *http.Request) {
	if !utils.IsInternalRequest(r.Context()) {
		respondMessage(w, http.StatusForbidden, "internal callers only")
		return
	}
	userID, ok := pathInt(w, r, "userId")
	if !ok {
		return
	}

	acc, err := h.ledger.OpenAccount(r.Context(), userID, h.signupBonus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, WalletDTO{UserID: acc.UserID, Balance: acc.Balance})
}
