package storage

import (
	"database/sql"
	"time"
)

// ReverseSwap is the persisted reverse-swap record (spec.md §3, "Reverse Swap").
type ReverseSwap struct {
	ID                          string
	PairID                      string
	OrderSide                   string
	PreimageHash                string
	Invoice                     string
	MinerFeeInvoice             string
	OnchainAmount               uint64
	HoldInvoiceAmount           uint64
	PercentageFee               float64
	PrepayMinerFeeOnchainAmount uint64
	HasPrepayMinerFee           bool
	LockupAddress               string
	RedeemScript                string
	ClaimPublicKey              string
	ClaimAddress                string
	TimeoutBlockHeight          uint32
	ReferralID                  string
	Status                      string
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// CreateReverseSwap inserts a new ReverseSwap, translating UNIQUE
// violations the same way CreateSwap does (spec.md §5).
func (s *Storage) CreateReverseSwap(rs *ReverseSwap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rs.CreatedAt, rs.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO reverse_swaps (
			id, pair_id, order_side, preimage_hash, invoice, miner_fee_invoice,
			onchain_amount, hold_invoice_amount, percentage_fee,
			prepay_miner_fee_onchain_amount, lockup_address, redeem_script,
			claim_public_key, claim_address, timeout_block_height, referral_id,
			status, created_at, updated_at
		) VALUES (?,?,?,?,?,NULLIF(?,''),?,?,?,?,?,NULLIF(?,''),NULLIF(?,''),NULLIF(?,''),?,NULLIF(?,''),?,?,?)
	`,
		rs.ID, rs.PairID, rs.OrderSide, rs.PreimageHash, rs.Invoice, rs.MinerFeeInvoice,
		rs.OnchainAmount, rs.HoldInvoiceAmount, rs.PercentageFee,
		nullableUint(rs.HasPrepayMinerFee, rs.PrepayMinerFeeOnchainAmount), rs.LockupAddress, rs.RedeemScript,
		rs.ClaimPublicKey, rs.ClaimAddress, rs.TimeoutBlockHeight, rs.ReferralID,
		rs.Status, rs.CreatedAt.Unix(), rs.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueConstraint(err, "preimage_hash") {
			return ErrPreimageHashExists
		}
		if isUniqueConstraint(err, "invoice") {
			return ErrInvoiceExists
		}
		return err
	}
	return nil
}

// GetReverseSwap returns the ReverseSwap with id, or ErrNotFound.
func (s *Storage) GetReverseSwap(id string) (*ReverseSwap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT * FROM reverse_swaps WHERE id = ?`, id)
	return scanReverseSwap(row)
}

func scanReverseSwap(row *sql.Row) (*ReverseSwap, error) {
	var rs ReverseSwap
	var minerFeeInvoice, redeemScript, claimPublicKey, claimAddress, referralID sql.NullString
	var prepayAmount sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&rs.ID, &rs.PairID, &rs.OrderSide, &rs.PreimageHash, &rs.Invoice, &minerFeeInvoice,
		&rs.OnchainAmount, &rs.HoldInvoiceAmount, &rs.PercentageFee,
		&prepayAmount, &rs.LockupAddress, &redeemScript,
		&claimPublicKey, &claimAddress, &rs.TimeoutBlockHeight, &referralID,
		&rs.Status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rs.MinerFeeInvoice = minerFeeInvoice.String
	rs.RedeemScript = redeemScript.String
	rs.ClaimPublicKey = claimPublicKey.String
	rs.ClaimAddress = claimAddress.String
	rs.ReferralID = referralID.String
	rs.CreatedAt = time.Unix(createdAt, 0)
	rs.UpdatedAt = time.Unix(updatedAt, 0)
	if prepayAmount.Valid {
		rs.PrepayMinerFeeOnchainAmount = uint64(prepayAmount.Int64)
		rs.HasPrepayMinerFee = true
	}
	return &rs, nil
}

// UpdateReverseSwapStatus transitions a ReverseSwap to a new lifecycle status.
func (s *Storage) UpdateReverseSwapStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE reverse_swaps SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().Unix(), id)
	return err
}
