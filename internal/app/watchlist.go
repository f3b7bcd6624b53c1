package app

// SetWatchlist replaces the symbols to refresh
func (a *App) SetWatchlist(items []WatchlistItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchlistItems = make([]WatchlistItem, 0, len(items))
	a.watchlistSet = make(map[string]struct{}, len(items))
	for _, item := range items {
		a.addLocked(item.Symbol, item.Name)
	}
}

// GetWatchlist returns the current watchlist symbols.
func (a *App) GetWatchlist() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]string, len(a.watchlistItems))
	for i, item := range a.watchlistItems {
		result[i] = item.Symbol
	}
	return result
}

// GetWatchlistItems returns the full watchlist items.
func (a *App) GetWatchlistItems() []WatchlistItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]WatchlistItem, len(a.watchlistItems))
	copy(result, a.watchlistItems)
	return result
}

// AddToWatchlist adds a symbol; it reports false if it was already present.
func (a *App) AddToWatchlist(symbol, name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addLocked(symbol, name)
}

func (a *App) addLocked(symbol, name string) bool {
	symbol = normalize(symbol)
	if symbol == "" {
		return false
	}
	if _, exists := a.watchlistSet[symbol]; exists {
		return false
	}
	if name == "" {
		name = symbol
	}
	a.watchlistSet[symbol] = struct{}{}
	a.watchlistItems = append(a.watchlistItems, WatchlistItem{Symbol: symbol, Name: name})
	return true
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (a *App) RemoveFromWatchlist(symbol string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	symbol = normalize(symbol)
	if _, exists := a.watchlistSet[symbol]; !exists {
		return false
	}
	delete(a.watchlistSet, symbol)
	for i, item := range a.watchlistItems {
		if item.Symbol == symbol {
			a.watchlistItems = append(a.watchlistItems[:i], a.watchlistItems[i+1:]...)
			break
		}
	}
	return true
}
