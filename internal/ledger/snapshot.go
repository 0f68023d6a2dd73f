package ledger

import "go.uber.org/zap"

// Snapshot is the serialized ledger state.
type Snapshot struct {
	Blocks    []Block                 `json:"blocks"`
	Pending   []Transaction           `json:"pending,omitempty"`
	Balances  map[string]float64      `json:"balances,omitempty"`
	Records   map[string]MemoryRecord `json:"records,omitempty"`
	Leases    map[string]Lease        `json:"leases,omitempty"`
	Contracts map[string]Contract     `json:"contracts,omitempty"`
}

// Snapshot captures the ledger for persistence.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	sn := &Snapshot{
		Blocks:    append([]Block(nil), l.blocks...),
		Pending:   append([]Transaction(nil), l.pending...),
		Balances:  make(map[string]float64, len(l.balances)),
		Records:   make(map[string]MemoryRecord, len(l.records)),
		Leases:    make(map[string]Lease, len(l.leases)),
		Contracts: make(map[string]Contract, len(l.contracts)),
	}
	for k, v := range l.balances {
		sn.Balances[k] = v
	}
	for k, v := range l.records {
		sn.Records[k] = v
	}
	for k, v := range l.leases {
		sn.Leases[k] = v
	}
	for k, v := range l.contracts {
		sn.Contracts[k] = v
	}
	return sn
}

// FromSnapshot rebuilds a ledger from its serialized state. The genesis
// block comes from the snapshot, not a fresh one.
func FromSnapshot(sn *Snapshot, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		blocks:    sn.Blocks,
		pending:   sn.Pending,
		balances:  sn.Balances,
		records:   sn.Records,
		leases:    sn.Leases,
		contracts: sn.Contracts,
		logger:    logger,
	}
	if l.balances == nil {
		l.balances = make(map[string]float64)
	}
	if l.records == nil {
		l.records = make(map[string]MemoryRecord)
	}
	if l.leases == nil {
		l.leases = make(map[string]Lease)
	}
	if l.contracts == nil {
		l.contracts = defaultContracts()
	}
	l.entropy = newEntropy()
	return l
}
