// Package ledger implements the hash-chained integrity ledger: transaction
// batches, per-account credit balances, capsule provenance records, and
// resource leases.
package ledger

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// SystemAccount originates rewards, bonuses, and registration credits.
const SystemAccount = "system"

// Sentinel errors for the distinct, user-visible rejection causes.
var (
	// ErrMalformedCapsule marks wire input that failed to decode.
	ErrMalformedCapsule = errors.New("malformed capsule")
	// ErrInsufficientCredits rejects a lease the borrower cannot pay for.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrLeaseDenied rejects a lease that failed the permission check.
	ErrLeaseDenied = errors.New("lease permission denied")
	// ErrUnknownLease rejects completion of a lease id never granted.
	ErrUnknownLease = errors.New("unknown lease")
)

// TxKind classifies a credit transfer.
type TxKind string

const (
	TxCapsuleUpload      TxKind = "capsule_upload"
	TxResourceLease      TxKind = "resource_lease"
	TxContributionReward TxKind = "contribution_reward"
	TxPenalty            TxKind = "penalty"
	TxContractExecution  TxKind = "contract_execution"
)

// Transaction is a signed credit transfer. Immutable once mined; before
// mining it sits in the pending pool in insertion order.
type Transaction struct {
	ID        string            `json:"tx_id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Amount    float64           `json:"amount"`
	Kind      TxKind            `json:"kind"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Block is one mined batch of transactions. Seal is a nonce-like filler kept
// for format compatibility; it carries no proof-of-work property and must not
// be relied on for tamper resistance.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    time.Time     `json:"timestamp"`
	PreviousHash string        `json:"previous_hash"`
	Hash         string        `json:"hash"`
	MerkleRoot   string        `json:"merkle_root"`
	Transactions []Transaction `json:"transactions,omitempty"`
	Seal         uint64        `json:"seal"`
}

// ContractKind classifies a system contract.
type ContractKind string

const (
	ContractIncentiveDistribution ContractKind = "incentive_distribution"
	ContractCapsuleValidation     ContractKind = "capsule_validation"
	ContractLeasePermission       ContractKind = "lease_permission"
)

// Contract is a registered policy stub. The code field is descriptive; the
// ledger implements the actual scoring and permission logic directly.
type Contract struct {
	ID            string            `json:"contract_id"`
	Kind          ContractKind      `json:"kind"`
	Creator       string            `json:"creator"`
	Code          string            `json:"code"`
	State         map[string]string `json:"state,omitempty"`
	Active        bool              `json:"active"`
	ExecutionCost float64           `json:"execution_cost"`
}

// Ledger is a single-writer, synchronous state machine. One lock guards the
// pending pool, the chain, and every registry mutated per operation.
type Ledger struct {
	mu        sync.Mutex
	blocks    []Block
	pending   []Transaction
	balances  map[string]float64
	records   map[string]MemoryRecord
	leases    map[string]Lease
	contracts map[string]Contract
	entropy   *rand.Rand
	logger    *zap.Logger
}

// New creates a ledger with a genesis block and the default system
// contracts. A nil logger disables logging.
func New(now time.Time, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		balances:  make(map[string]float64),
		records:   make(map[string]MemoryRecord),
		leases:    make(map[string]Lease),
		contracts: defaultContracts(),
		entropy:   newEntropy(),
		logger:    logger,
	}
	l.blocks = append(l.blocks, Block{
		Index:        0,
		Timestamp:    now,
		PreviousHash: "0",
		Hash:         "genesis",
		MerkleRoot:   "genesis",
	})
	l.logger.Info("ledger initialized with genesis block")
	return l
}

func defaultContracts() map[string]Contract {
	contracts := map[string]Contract{
		"incentive_distributor": {
			ID:            "incentive_distributor",
			Kind:          ContractIncentiveDistribution,
			Creator:       SystemAccount,
			Code:          "reward = base_reward * quality * novelty",
			Active:        true,
			ExecutionCost: 0.01,
		},
		"capsule_validator": {
			ID:            "capsule_validator",
			Kind:          ContractCapsuleValidation,
			Creator:       SystemAccount,
			Code:          "score capsule novelty, importance, tag richness",
			Active:        true,
			ExecutionCost: 0.005,
		},
		"lease_manager": {
			ID:            "lease_manager",
			Kind:          ContractLeasePermission,
			Creator:       SystemAccount,
			Code:          "approve lease when borrower holds more than 1 credit",
			Active:        true,
			ExecutionCost: 0.02,
		},
	}
	return contracts
}

// Balance returns an account's credit balance, zero for unknown accounts.
func (l *Ledger) Balance(account string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Stats is a read-only snapshot of ledger aggregates.
type Stats struct {
	Blocks              int `json:"blocks"`
	Transactions        int `json:"transactions"`
	PendingTransactions int `json:"pending_transactions"`
	Accounts            int `json:"accounts"`
	CapsuleRecords      int `json:"capsule_records"`
	Leases              int `json:"leases"`
	Contracts           int `json:"contracts"`
}

// Stats reports chain, pool, and registry sizes.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	mined := 0
	for _, b := range l.blocks {
		mined += len(b.Transactions)
	}
	return Stats{
		Blocks:              len(l.blocks),
		Transactions:        mined,
		PendingTransactions: len(l.pending),
		Accounts:            len(l.balances),
		CapsuleRecords:      len(l.records),
		Leases:              len(l.leases),
		Contracts:           len(l.contracts),
	}
}

func newEntropy() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func (l *Ledger) newID(prefix string, now time.Time) string {
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(now), l.entropy).String()
}
