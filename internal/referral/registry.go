// Package referral implements the Referral Registry: maps a referral id to
// {feeShare, routingNode, apiKey, apiSecret} and supports reverse lookup by
// routing node (spec.md §2, §4.1 addReferral, §4.7 referral resolution).
package referral

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/klingon-exchange/klingon-v2/internal/storage"
	"github.com/klingon-exchange/klingon-v2/internal/swaperrors"
)

// Registry is backed by the Swap Repository's referrals table.
type Registry struct {
	store *storage.Storage
}

func New(store *storage.Storage) *Registry {
	return &Registry{store: store}
}

// Referral mirrors storage.Referral without exposing the storage package
// to callers outside the orchestrator's persistence boundary.
type Referral struct {
	ID          string
	FeeShare    int
	RoutingNode string
	APIKey      string
	APISecret   string
}

// Add validates and persists a new referral (spec.md §4.1 addReferral).
func (r *Registry) Add(id string, feeShare int, routingNode string) (*Referral, error) {
	if id == "" {
		return nil, swaperrors.EmptyReferralIDErr()
	}
	if feeShare < 0 || feeShare > 100 {
		return nil, swaperrors.InvalidReferralFeeShareErr()
	}

	apiKey, err := randomHex(16)
	if err != nil {
		return nil, err
	}
	apiSecret, err := randomHex(32)
	if err != nil {
		return nil, err
	}

	rec := &storage.Referral{ID: id, FeeShare: feeShare, RoutingNode: routingNode, APIKey: apiKey, APISecret: apiSecret}
	if err := r.store.CreateReferral(rec); err != nil {
		return nil, err
	}
	return toReferral(rec), nil
}

// Get returns the referral registered under id.
func (r *Registry) Get(id string) (*Referral, error) {
	rec, err := r.store.GetReferral(id)
	if err != nil {
		return nil, err
	}
	return toReferral(rec), nil
}

// GetByRoutingNode returns the referral registered for routingNode.
func (r *Registry) GetByRoutingNode(routingNode string) (*Referral, error) {
	rec, err := r.store.GetReferralByRoutingNode(routingNode)
	if err != nil {
		return nil, err
	}
	return toReferral(rec), nil
}

// Resolve implements the referral resolution algorithm (spec.md §4.7):
// an explicit id takes precedence; otherwise a routingNode is looked up;
// otherwise the referral is undefined (empty string, no error).
func (r *Registry) Resolve(explicitID, routingNode string) (string, error) {
	if explicitID != "" {
		return explicitID, nil
	}
	if routingNode != "" {
		ref, err := r.GetByRoutingNode(routingNode)
		if err != nil {
			return "", err
		}
		return ref.ID, nil
	}
	return "", nil
}

func toReferral(rec *storage.Referral) *Referral {
	return &Referral{ID: rec.ID, FeeShare: rec.FeeShare, RoutingNode: rec.RoutingNode, APIKey: rec.APIKey, APISecret: rec.APISecret}
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
