package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meshmind/engram/internal/model"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testCapsule(id string, novelty, importance float64, tags []string) *model.Capsule {
	return &model.Capsule{
		ID:            id,
		Timestamp:     t0,
		Origin:        "cluster-test",
		Privacy:       model.PrivacyPublic,
		ContextVector: make([]float64, model.ContextDim),
		SemanticTags:  tags,
		Novelty:       novelty,
		Importance:    importance,
		Payload:       []byte(`{"u":1}`),
	}
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGenesisBlock(t *testing.T) {
	l := New(t0, nil)
	blocks := l.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Index != 0 || blocks[0].PreviousHash != "0" {
		t.Errorf("unexpected genesis: %+v", blocks[0])
	}
	if !l.ValidateChain() {
		t.Error("expected fresh chain to validate")
	}
}

func TestRegisterDevice(t *testing.T) {
	l := New(t0, nil)
	l.RegisterDevice("d1", 10, t0)
	if got := l.Balance("d1"); got != 10 {
		t.Errorf("expected balance 10, got %v", got)
	}
	if got := l.Balance("unknown"); got != 0 {
		t.Errorf("expected zero balance for unknown account, got %v", got)
	}
	// Re-registration overwrites rather than merges.
	l.RegisterDevice("d1", 5, t0)
	if got := l.Balance("d1"); got != 5 {
		t.Errorf("expected overwritten balance 5, got %v", got)
	}
}

func TestRegisterCapsuleRewards(t *testing.T) {
	l := New(t0, nil)
	l.RegisterDevice("d1", 10, t0)

	// High novelty, high importance, four tags: every validation bonus
	// applies and quality caps at 1.0, so the incentive equals novelty.
	capsule := testCapsule("cap_a", 0.9, 0.9, []string{"a", "b", "c", "d"})
	receipt, err := l.RegisterCapsule(capsule.Encode(), "d1", t0)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !almost(receipt.Quality, 1.0) {
		t.Errorf("expected quality 1.0, got %v", receipt.Quality)
	}
	if !almost(receipt.Incentive, 0.9) {
		t.Errorf("expected incentive 0.9, got %v", receipt.Incentive)
	}
	if got := l.Balance("d1"); !almost(got, 10.9) {
		t.Errorf("expected balance 10.9, got %v", got)
	}

	rec, ok := l.Provenance("cap_a")
	if !ok {
		t.Fatal("expected provenance record")
	}
	if rec.Uploader != "d1" || rec.Hash == "" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if len(rec.AccessList) != 1 || rec.AccessList[0] != "d1" {
		t.Errorf("expected uploader-only access list, got %v", rec.AccessList)
	}
}

func TestRegisterCapsuleBaseQuality(t *testing.T) {
	l := New(t0, nil)
	capsule := testCapsule("cap_plain", 0.2, 0.1, nil)
	receipt, err := l.RegisterCapsule(capsule.Encode(), "d1", t0)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !almost(receipt.Quality, 0.5) {
		t.Errorf("expected base quality 0.5, got %v", receipt.Quality)
	}
	if !almost(receipt.Incentive, 0.1) {
		t.Errorf("expected incentive 0.5*0.2, got %v", receipt.Incentive)
	}
}

func TestRegisterCapsuleMalformed(t *testing.T) {
	l := New(t0, nil)
	_, err := l.RegisterCapsule([]byte("garbage"), "d1", t0)
	if !errors.Is(err, ErrMalformedCapsule) {
		t.Fatalf("expected ErrMalformedCapsule, got %v", err)
	}
	if l.Stats().PendingTransactions != 0 {
		t.Error("expected no queued transaction after rejection")
	}
	if l.Balance("d1") != 0 {
		t.Error("expected no credit after rejection")
	}
}

func TestMineAndValidate(t *testing.T) {
	l := New(t0, nil)
	l.RegisterDevice("d1", 10, t0)

	hash := l.MineBlock(t0.Add(time.Minute))
	if hash == "" {
		t.Fatal("expected a block hash")
	}
	if l.Stats().PendingTransactions != 0 {
		t.Error("expected pending pool cleared after mining")
	}

	l.RegisterDevice("d2", 10, t0.Add(2*time.Minute))
	l.MineBlock(t0.Add(3 * time.Minute))

	if !l.ValidateChain() {
		t.Error("expected chain to validate after two mines")
	}
	if got := len(l.Blocks()); got != 3 {
		t.Errorf("expected 3 blocks, got %d", got)
	}
}

func TestMineEmptyPoolNoOp(t *testing.T) {
	l := New(t0, nil)
	if hash := l.MineBlock(t0); hash != "" {
		t.Errorf("expected empty hash for empty pool, got %q", hash)
	}
	if got := len(l.Blocks()); got != 1 {
		t.Errorf("expected only genesis, got %d blocks", got)
	}
}

func TestValidateDetectsTampering(t *testing.T) {
	l := New(t0, nil)
	l.RegisterDevice("d1", 10, t0)
	l.MineBlock(t0.Add(time.Minute))

	l.blocks[1].PreviousHash = "forged"
	if l.ValidateChain() {
		t.Error("expected tampered chain to fail validation")
	}
}

func TestDefaultContracts(t *testing.T) {
	l := New(t0, nil)
	if got := l.Stats().Contracts; got != 3 {
		t.Errorf("expected 3 system contracts, got %d", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := New(t0, nil)
	l.RegisterDevice("d1", 10, t0)
	capsule := testCapsule("cap_a", 0.9, 0.9, []string{"a", "b", "c", "d"})
	l.RegisterCapsule(capsule.Encode(), "d1", t0)
	l.MineBlock(t0.Add(time.Minute))

	restored := FromSnapshot(l.Snapshot(), nil)
	if !restored.ValidateChain() {
		t.Error("expected restored chain to validate")
	}
	if got := restored.Balance("d1"); !almost(got, 10.9) {
		t.Errorf("expected restored balance 10.9, got %v", got)
	}
	if _, ok := restored.Provenance("cap_a"); !ok {
		t.Error("expected provenance restored")
	}
	if got := len(restored.Blocks()); got != 2 {
		t.Errorf("expected 2 restored blocks, got %d", got)
	}
}
