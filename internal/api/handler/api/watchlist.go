// internal/api/handler/api/watchlist.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newthinker/dipcast/internal/api/response"
	"github.com/newthinker/dipcast/internal/app"
	"github.com/newthinker/dipcast/internal/core"
)

// WatchlistApp defines the interface needed from app.App.
type WatchlistApp interface {
	GetWatchlistItems() []app.WatchlistItem
	AddToWatchlist(symbol, name string) bool
	RemoveFromWatchlist(symbol string) bool
}

// WatchlistHandler handles watchlist API requests.
type WatchlistHandler struct {
	app WatchlistApp
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(app WatchlistApp) *WatchlistHandler {
	return &WatchlistHandler{app: app}
}

// AddRequest is the request body for adding a symbol.
type AddRequest struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
}

// List returns all symbols in the watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.app.GetWatchlistItems()
	response.JSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// Add adds a symbol to the watchlist.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, err))
		return
	}

	if req.Symbol == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrBadRequest, errors.New("symbol is required")))
		return
	}

	added := h.app.AddToWatchlist(req.Symbol, req.Name)

	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	response.JSON(w, status, map[string]any{
		"symbol": req.Symbol,
		"added":  added,
	})
}

// Remove removes {symbol} from the watchlist.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if !h.app.RemoveFromWatchlist(symbol) {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrSymbolNotFound, errors.New(symbol)))
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"removed": true,
	})
}
