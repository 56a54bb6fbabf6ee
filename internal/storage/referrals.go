package storage

import (
	"database/sql"
	"time"
)

// Referral is the persisted referral record (spec.md §3, "Referral").
type Referral struct {
	ID          string
	FeeShare    int
	RoutingNode string
	APIKey      string
	APISecret   string
	CreatedAt   time.Time
}

// CreateReferral inserts a new Referral. A UNIQUE violation on
// routing_node is translated to ErrRoutingNodeExists.
func (s *Storage) CreateReferral(r *Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.CreatedAt = time.Now()
	_, err := s.db.Exec(`
		INSERT INTO referrals (id, fee_share, routing_node, api_key, api_secret, created_at)
		VALUES (?, ?, NULLIF(?,''), ?, ?, ?)
	`, r.ID, r.FeeShare, r.RoutingNode, r.APIKey, r.APISecret, r.CreatedAt.Unix())
	if err != nil {
		if isUniqueConstraint(err, "routing_node") {
			return ErrRoutingNodeExists
		}
		return err
	}
	return nil
}

// GetReferral returns the Referral with id, or ErrNotFound.
func (s *Storage) GetReferral(id string) (*Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT id, fee_share, routing_node, api_key, api_secret, created_at FROM referrals WHERE id = ?`, id)
	return scanReferral(row)
}

// GetReferralByRoutingNode returns the Referral registered for
// routingNode, or ErrNotFound, for the reverse lookup createReverseSwap
// uses (spec.md §4.7, §2 "Referral Registry").
func (s *Storage) GetReferralByRoutingNode(routingNode string) (*Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT id, fee_share, routing_node, api_key, api_secret, created_at FROM referrals WHERE routing_node = ?`, routingNode)
	return scanReferral(row)
}

func scanReferral(row *sql.Row) (*Referral, error) {
	var r Referral
	var routingNode sql.NullString
	var createdAt int64
	err := row.Scan(&r.ID, &r.FeeShare, &routingNode, &r.APIKey, &r.APISecret, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.RoutingNode = routingNode.String
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}
