package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MineBlock seals the pending pool into a new block and clears the pool.
// With an empty pool it is a no-op returning an empty hash; mining never
// produces empty blocks beyond genesis. Returns the new block's hash.
func (l *Ledger) MineBlock(now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return ""
	}

	prev := l.blocks[len(l.blocks)-1]
	txs := make([]Transaction, len(l.pending))
	copy(txs, l.pending)

	blk := Block{
		Index:        prev.Index + 1,
		Timestamp:    now,
		PreviousHash: prev.Hash,
		Hash:         blockHash(prev.Index+1, txs),
		MerkleRoot:   merkleRoot(txs),
		Transactions: txs,
		// The seal is random filler for format compatibility; there
		// is no proof-of-work here.
		Seal: l.entropy.Uint64(),
	}
	l.blocks = append(l.blocks, blk)
	l.pending = l.pending[:0]

	l.logger.Info("mined block",
		zap.Uint64("index", blk.Index),
		zap.Int("transactions", len(blk.Transactions)))
	return blk.Hash
}

// ValidateChain checks hash linkage and index continuity across every
// adjacent block pair. Empty and single-block chains are trivially valid. A
// false result means the ledger can no longer be trusted; it is never
// auto-repaired.
func (l *Ledger) ValidateChain() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 1; i < len(l.blocks); i++ {
		if l.blocks[i].PreviousHash != l.blocks[i-1].Hash {
			return false
		}
		if l.blocks[i].Index != l.blocks[i-1].Index+1 {
			return false
		}
	}
	return true
}

// Blocks returns a copy of the chain.
func (l *Ledger) Blocks() []Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	blocks := make([]Block, len(l.blocks))
	copy(blocks, l.blocks)
	return blocks
}

// blockHash is a deterministic digest of the block index and its serialized
// transactions.
func blockHash(index uint64, txs []Transaction) string {
	payload, _ := json.Marshal(txs)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", index, payload)))
	return hex.EncodeToString(sum[:])
}

// merkleRoot is a deterministic digest over the concatenation of each
// transaction's id hash.
func merkleRoot(txs []Transaction) string {
	if len(txs) == 0 {
		return "empty"
	}
	var b strings.Builder
	for _, tx := range txs {
		b.WriteString(contentHash([]byte(tx.ID)))
	}
	return contentHash([]byte(b.String()))
}

// contentHash is the ledger's content digest: hex-encoded SHA-256.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
