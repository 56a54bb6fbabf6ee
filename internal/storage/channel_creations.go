package storage

import (
	"database/sql"
)

// ChannelCreation is associated with a forward Swap (spec.md §3, "Channel
// Creation"); destroyed alongside its Swap on rollback.
type ChannelCreation struct {
	SwapID                  string
	InboundLiquidityPercent int
	Private                 bool
}

// CreateChannelCreation inserts a ChannelCreation tied to an existing Swap.
func (s *Storage) CreateChannelCreation(cc *ChannelCreation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO channel_creations (swap_id, inbound_liquidity_percent, private)
		VALUES (?, ?, ?)
	`, cc.SwapID, cc.InboundLiquidityPercent, boolToInt(cc.Private))
	return err
}

// GetChannelCreation returns the ChannelCreation for swapID, or ErrNotFound.
func (s *Storage) GetChannelCreation(swapID string) (*ChannelCreation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cc ChannelCreation
	var private int
	row := s.db.QueryRow(`SELECT swap_id, inbound_liquidity_percent, private FROM channel_creations WHERE swap_id = ?`, swapID)
	if err := row.Scan(&cc.SwapID, &cc.InboundLiquidityPercent, &private); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cc.Private = private != 0
	return &cc, nil
}

// DeleteChannelCreation removes swapID's ChannelCreation, if any.
func (s *Storage) DeleteChannelCreation(swapID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM channel_creations WHERE swap_id = ?`, swapID)
	return err
}
