package memory

import (
	"testing"
	"time"

	"solbank/pkg/metrics"
)

func TestMemoryCollector_Counters(t *testing.T) {
	mc := NewMemoryCollector()

	mc.RecordRemoteCall("accounts", true, 10*time.Millisecond)
	mc.RecordRemoteCall("accounts", false, 10*time.Millisecond)
	mc.RecordRemoteCall("goals", true, 5*time.Millisecond)
	mc.RecordFallback("accounts")
	mc.RecordEnqueue("create_goal")
	mc.RecordEnqueue("create_goal")
	mc.RecordDrain(metrics.DrainSynced)
	mc.RecordDrain(metrics.DrainDeadLetter)
	mc.RecordQueueDepth(4)
	mc.RecordTransfer("confirmed", time.Second)
	mc.RecordCircuitState("remote-api", metrics.CircuitOpen)

	snap := mc.TakeSnapshot()
	if rm := snap.RemoteCalls["accounts"]; rm.Successes != 1 || rm.Failures != 1 {
		t.Errorf("Unexpected accounts counters: %+v", rm)
	}
	if snap.Fallbacks["accounts"] != 1 {
		t.Errorf("Expected 1 fallback, got %d", snap.Fallbacks["accounts"])
	}
	if snap.Enqueues["create_goal"] != 2 {
		t.Errorf("Expected 2 enqueues, got %d", snap.Enqueues["create_goal"])
	}
	if snap.Drains[metrics.DrainSynced] != 1 || snap.Drains[metrics.DrainDeadLetter] != 1 {
		t.Errorf("Unexpected drain counters: %v", snap.Drains)
	}
	if snap.QueueDepth != 4 {
		t.Errorf("Expected depth 4, got %d", snap.QueueDepth)
	}
	if snap.Transfers["confirmed"] != 1 {
		t.Errorf("Expected 1 confirmed transfer, got %d", snap.Transfers["confirmed"])
	}
	if snap.CircuitStates["remote-api"] != metrics.CircuitOpen.String() {
		t.Errorf("Unexpected circuit state: %v", snap.CircuitStates)
	}
}

func TestMemoryCollector_SnapshotIsCopy(t *testing.T) {
	mc := NewMemoryCollector()
	mc.RecordFallback("accounts")

	snap := mc.TakeSnapshot()
	snap.Fallbacks["accounts"] = 99

	if mc.TakeSnapshot().Fallbacks["accounts"] != 1 {
		t.Error("Expected the snapshot to be independent of the collector")
	}
}
