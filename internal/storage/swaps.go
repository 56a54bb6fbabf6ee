package storage

import (
	"database/sql"
	"time"
)

// Swap is the persisted forward-swap record (spec.md §3, "Swap (forward)").
type Swap struct {
	ID                  string
	PairID              string
	OrderSide           string
	PreimageHash        string
	Invoice             string // empty until set
	OnchainAmount       uint64 // 0 until observed
	HasOnchainAmount    bool
	ExpectedAmount      uint64
	PercentageFee       float64
	BaseFee             uint64
	AcceptZeroConf      bool
	Rate                float64
	LockupAddress       string
	LockupTransactionID string
	TimeoutBlockHeight  uint32
	RefundPublicKey     string
	ClaimAddress        string
	KeyIndex            uint32
	HasKeyIndex         bool
	RedeemScript        string
	ReferralID          string
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CreateSwap inserts a new Swap. A UNIQUE violation on preimage_hash or
// invoice is translated to ErrPreimageHashExists / ErrInvoiceExists so the
// orchestrator's optimistic prior-existence check and this insert-time
// enforcement surface the same error (spec.md §5).
func (s *Storage) CreateSwap(swap *Swap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	swap.CreatedAt, swap.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO swaps (
			id, pair_id, order_side, preimage_hash, invoice, onchain_amount,
			expected_amount, percentage_fee, base_fee, accept_zero_conf, rate,
			lockup_address, lockup_transaction_id, timeout_block_height,
			refund_public_key, claim_address, key_index, redeem_script,
			referral_id, status, created_at, updated_at
		) VALUES (?,?,?,?,NULLIF(?,''),?,?,?,?,?,?,?,NULLIF(?,''),?,NULLIF(?,''),NULLIF(?,''),?,NULLIF(?,''),NULLIF(?,''),?,?,?)
	`,
		swap.ID, swap.PairID, swap.OrderSide, swap.PreimageHash, swap.Invoice, nullableUint(swap.HasOnchainAmount, swap.OnchainAmount),
		swap.ExpectedAmount, swap.PercentageFee, swap.BaseFee, boolToInt(swap.AcceptZeroConf), swap.Rate,
		swap.LockupAddress, swap.LockupTransactionID, swap.TimeoutBlockHeight,
		swap.RefundPublicKey, swap.ClaimAddress, nullableUint(swap.HasKeyIndex, uint64(swap.KeyIndex)), swap.RedeemScript,
		swap.ReferralID, swap.Status, swap.CreatedAt.Unix(), swap.UpdatedAt.Unix(),
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

// GetSwap returns the Swap with id, or ErrNotFound.
func (s *Storage) GetSwap(id string) (*Swap, error) {
	return s.queryOneSwap(`SELECT * FROM swaps WHERE id = ?`, id)
}

// GetSwapByPreimageHash returns the Swap with preimageHash, or ErrNotFound.
func (s *Storage) GetSwapByPreimageHash(preimageHash string) (*Swap, error) {
	return s.queryOneSwap(`SELECT * FROM swaps WHERE preimage_hash = ?`, preimageHash)
}

// GetSwapByLockupTransactionID returns the Swap whose lockup transaction is
// txid, used by broadcastTransaction's refund-safety check (spec.md §4.1).
func (s *Storage) GetSwapByLockupTransactionID(txid string) (*Swap, error) {
	return s.queryOneSwap(`SELECT * FROM swaps WHERE lockup_transaction_id = ?`, txid)
}

func (s *Storage) queryOneSwap(query string, args ...interface{}) (*Swap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(query, args...)
	return scanSwap(row)
}

func scanSwap(row *sql.Row) (*Swap, error) {
	var sw Swap
	var invoice, lockupTxID, refundPubKey, claimAddress, redeemScript, referralID sql.NullString
	var onchainAmount, keyIndex sql.NullInt64
	var acceptZeroConf int
	var createdAt, updatedAt int64

	err := row.Scan(
		&sw.ID, &sw.PairID, &sw.OrderSide, &sw.PreimageHash, &invoice, &onchainAmount,
		&sw.ExpectedAmount, &sw.PercentageFee, &sw.BaseFee, &acceptZeroConf, &sw.Rate,
		&sw.LockupAddress, &lockupTxID, &sw.TimeoutBlockHeight,
		&refundPubKey, &claimAddress, &keyIndex, &redeemScript,
		&referralID, &sw.Status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sw.Invoice = invoice.String
	sw.LockupTransactionID = lockupTxID.String
	sw.RefundPublicKey = refundPubKey.String
	sw.ClaimAddress = claimAddress.String
	sw.RedeemScript = redeemScript.String
	sw.ReferralID = referralID.String
	sw.AcceptZeroConf = acceptZeroConf != 0
	sw.CreatedAt = time.Unix(createdAt, 0)
	sw.UpdatedAt = time.Unix(updatedAt, 0)
	if onchainAmount.Valid {
		sw.OnchainAmount = uint64(onchainAmount.Int64)
		sw.HasOnchainAmount = true
	}
	if keyIndex.Valid {
		sw.KeyIndex = uint32(keyIndex.Int64)
		sw.HasKeyIndex = true
	}
	return &sw, nil
}

// SetInvoice binds invoice to a Swap that has none yet (set-once, spec.md
// §3 invariants). Returns ErrInvalidSwapState if the swap already has an
// invoice — the caller (orchestrator) is expected to have already checked
// this optimistically; this is the authoritative enforcement.
func (s *Storage) SetInvoice(id, invoice string, expectedAmount uint64, percentageFee float64, baseFee uint64, acceptZeroConf bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE swaps SET invoice = ?, expected_amount = ?, percentage_fee = ?, base_fee = ?,
			accept_zero_conf = ?, updated_at = ?
		WHERE id = ? AND invoice IS NULL
	`, invoice, expectedAmount, percentageFee, baseFee, boolToInt(acceptZeroConf), time.Now().Unix(), id)
	if err != nil {
		if isUniqueConstraint(err, "invoice") {
			return ErrInvoiceExists
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidSwapState
	}
	return nil
}

// SetOnchainAmount records the amount observed locking up the swap address.
func (s *Storage) SetOnchainAmount(id string, amount uint64, lockupTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE swaps SET onchain_amount = ?, lockup_transaction_id = ?, updated_at = ? WHERE id = ?`,
		amount, lockupTxID, time.Now().Unix(), id)
	return err
}

// UpdateStatus transitions a Swap to a new lifecycle status.
func (s *Storage) UpdateStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE swaps SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().Unix(), id)
	return err
}

// DeleteSwap removes a Swap and its Channel Creation, used to roll back a
// failed createSwapWithInvoice (spec.md §4.4, §5 "Resource acquisition").
func (s *Storage) DeleteSwap(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM channel_creations WHERE swap_id = ?`, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM swaps WHERE id = ?`, id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableUint(has bool, v uint64) interface{} {
	if !has {
		return nil
	}
	return v
}
