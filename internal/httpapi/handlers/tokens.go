package handlers

import "net/http"

// TokenView is one canonical symbol with its per-exchange original-symbol
// mapping (spec.md §6 `GET /api/tokens`).
type TokenView struct {
	CanonicalSymbol string            `json:"canonical_symbol"`
	Exchanges       map[string]string `json:"exchanges"`
}

// Tokens handles `GET /api/tokens`.
func (h *Handlers) Tokens(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Read.TokenMappings(r.Context())
	if err != nil {
		h.writeServerError(w, "failed to load token mappings")
		return
	}

	order := make([]string, 0)
	byCanonical := make(map[string]*TokenView)
	for _, row := range rows {
		v, ok := byCanonical[row.CanonicalSymbol]
		if !ok {
			v = &TokenView{CanonicalSymbol: row.CanonicalSymbol, Exchanges: make(map[string]string)}
			byCanonical[row.CanonicalSymbol] = v
			order = append(order, row.CanonicalSymbol)
		}
		v.Exchanges[row.Exchange] = row.OriginalSymbol
	}

	out := make([]*TokenView, 0, len(order))
	for _, sym := range order {
		out = append(out, byCanonical[sym])
	}

	h.writeJSON(w, out, nil)
}
