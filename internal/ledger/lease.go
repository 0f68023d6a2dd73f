package ledger

import (
	"strconv"
	"time"

	"go.uber.org/zap"
)

// leaseCostPerUnit prices one duration unit of a leased resource.
const leaseCostPerUnit = 0.5

// LeaseStatus tracks a lease through its lifecycle.
type LeaseStatus string

const (
	LeaseRequested LeaseStatus = "requested"
	LeaseApproved  LeaseStatus = "approved"
	LeaseActive    LeaseStatus = "active"
	LeaseCompleted LeaseStatus = "completed"
	LeaseDisputed  LeaseStatus = "disputed"
)

// Lease is a time-bounded grant of a resource from owner to borrower, paid
// up front with an optional performance bonus at completion.
type Lease struct {
	ID       string             `json:"lease_id"`
	Borrower string             `json:"borrower"`
	Owner    string             `json:"owner"`
	Resource string             `json:"resource"`
	Start    time.Time          `json:"start"`
	Duration float64            `json:"duration"`
	Cost     float64            `json:"cost"`
	Status   LeaseStatus        `json:"status"`
	Metrics  map[string]float64 `json:"performance_metrics,omitempty"`
}

// RequestLease charges the borrower cost = 0.5 * duration and grants an
// approved lease. Fails with ErrInsufficientCredits when the borrower cannot
// cover the cost, and with ErrLeaseDenied when the permission policy rejects
// the borrower. Neither failure mutates any state.
func (l *Ledger) RequestLease(borrower, owner, resource string, duration float64, now time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := leaseCostPerUnit * duration
	if l.balances[borrower] < cost {
		return "", ErrInsufficientCredits
	}
	if !l.leasePermitted(borrower) {
		return "", ErrLeaseDenied
	}

	leaseID := l.newID("lease", now)
	l.leases[leaseID] = Lease{
		ID:       leaseID,
		Borrower: borrower,
		Owner:    owner,
		Resource: resource,
		Start:    now,
		Duration: duration,
		Cost:     cost,
		Status:   LeaseApproved,
	}

	l.pending = append(l.pending, Transaction{
		ID:        l.newID("tx", now),
		From:      borrower,
		To:        owner,
		Amount:    cost,
		Kind:      TxResourceLease,
		Timestamp: now,
		Metadata: map[string]string{
			"lease_id": leaseID,
			"resource": resource,
			"duration": strconv.FormatFloat(duration, 'f', -1, 64),
		},
	})
	l.balances[borrower] -= cost
	l.balances[owner] += cost

	l.logger.Info("approved resource lease",
		zap.String("lease_id", leaseID),
		zap.String("borrower", borrower),
		zap.Float64("cost", cost))
	return leaseID, nil
}

// leasePermitted is the lease permission policy: the borrower must hold more
// than one credit.
func (l *Ledger) leasePermitted(borrower string) bool {
	return l.balances[borrower] > 1.0
}

// CompleteLease marks a lease completed and records its performance metrics.
// A mean metric above 0.8 earns the borrower a system-paid bonus of 10% of
// the lease cost. Fails with ErrUnknownLease for an id never granted.
func (l *Ledger) CompleteLease(leaseID string, metrics map[string]float64, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lease, ok := l.leases[leaseID]
	if !ok {
		return ErrUnknownLease
	}
	lease.Status = LeaseCompleted
	lease.Metrics = metrics

	if len(metrics) > 0 {
		var total float64
		for _, v := range metrics {
			total += v
		}
		if total/float64(len(metrics)) > 0.8 {
			bonus := lease.Cost * 0.1
			l.balances[lease.Borrower] += bonus
			l.pending = append(l.pending, Transaction{
				ID:        l.newID("tx", now),
				From:      SystemAccount,
				To:        lease.Borrower,
				Amount:    bonus,
				Kind:      TxContributionReward,
				Timestamp: now,
				Metadata:  map[string]string{"lease_id": leaseID},
			})
			l.logger.Info("performance bonus awarded",
				zap.String("lease_id", leaseID),
				zap.Float64("bonus", bonus))
		}
	}

	l.leases[leaseID] = lease
	return nil
}

// LeaseByID looks up a lease record.
func (l *Ledger) LeaseByID(leaseID string) (Lease, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lease, ok := l.leases[leaseID]
	return lease, ok
}
