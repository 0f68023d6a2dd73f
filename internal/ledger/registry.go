package ledger

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/meshmind/engram/internal/model"
)

// baseReward is the reward multiplier for a capsule upload.
const baseReward = 1.0

// MemoryRecord is the provenance record for one registered capsule.
type MemoryRecord struct {
	CapsuleID  string             `json:"capsule_id"`
	Uploader   string             `json:"uploader"`
	Timestamp  time.Time          `json:"timestamp"`
	Hash       string             `json:"hash"`
	Privacy    model.PrivacyLevel `json:"privacy_level"`
	Incentive  float64            `json:"incentive_earned"`
	AccessList []string           `json:"access_permissions"`
	Quality    float64            `json:"quality_score"`
	UsageCount uint32             `json:"usage_count"`
}

// UploadReceipt reports a successful capsule registration. TxID references
// the queued upload transaction and doubles as the store's verification
// pointer.
type UploadReceipt struct {
	CapsuleID string  `json:"capsule_id"`
	TxID      string  `json:"tx_id"`
	Quality   float64 `json:"quality_score"`
	Incentive float64 `json:"incentive"`
}

// RegisterDevice sets an account's balance and queues a registration credit
// from the system account. Re-registration overwrites the balance rather
// than merging, so an account registered twice loses its accumulated
// credits.
func (l *Ledger) RegisterDevice(account string, initialCredits float64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] = initialCredits
	l.pending = append(l.pending, Transaction{
		ID:        l.newID("tx", now),
		From:      SystemAccount,
		To:        account,
		Amount:    initialCredits,
		Kind:      TxContributionReward,
		Timestamp: now,
	})
	l.logger.Info("registered device",
		zap.String("account", account),
		zap.Float64("credits", initialCredits))
}

// RegisterCapsule validates a capsule from its wire form, records its
// provenance, queues the upload transaction, and credits the uploader by
// incentive = baseReward * quality * novelty. Returns ErrMalformedCapsule
// with no state change if the capsule does not decode.
func (l *Ledger) RegisterCapsule(data []byte, uploader string, now time.Time) (*UploadReceipt, error) {
	c, err := model.DecodeCapsule(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedCapsule, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	quality := validationScore(c)
	incentive := baseReward * quality * c.Novelty

	l.records[c.ID] = MemoryRecord{
		CapsuleID:  c.ID,
		Uploader:   uploader,
		Timestamp:  c.Timestamp,
		Hash:       contentHash(data),
		Privacy:    c.Privacy,
		Incentive:  incentive,
		AccessList: []string{uploader},
		Quality:    quality,
	}

	tx := Transaction{
		ID:        l.newID("tx", now),
		From:      SystemAccount,
		To:        uploader,
		Amount:    incentive,
		Kind:      TxCapsuleUpload,
		Timestamp: now,
		Metadata: map[string]string{
			"capsule_id": c.ID,
			"quality":    strconv.FormatFloat(quality, 'f', -1, 64),
		},
	}
	l.pending = append(l.pending, tx)
	l.balances[uploader] += incentive

	l.logger.Info("registered capsule",
		zap.String("capsule_id", c.ID),
		zap.String("uploader", uploader),
		zap.Float64("incentive", incentive))
	return &UploadReceipt{
		CapsuleID: c.ID,
		TxID:      tx.ID,
		Quality:   quality,
		Incentive: incentive,
	}, nil
}

// validationScore is the capsule validation policy: base 0.5, bonuses for
// high novelty, high importance, and tag richness, capped at 1.0.
func validationScore(c *model.Capsule) float64 {
	quality := 0.5
	if c.Novelty > 0.7 {
		quality += 0.2
	}
	if c.Importance > 0.8 {
		quality += 0.2
	}
	if len(c.SemanticTags) > 3 {
		quality += 0.1
	}
	if quality > 1.0 {
		quality = 1.0
	}
	return quality
}

// Provenance looks up the registration record for a capsule id.
func (l *Ledger) Provenance(capsuleID string) (MemoryRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[capsuleID]
	return rec, ok
}
