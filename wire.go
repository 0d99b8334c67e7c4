package statesync

import "github.com/autonity/statesync/message"

func toWireLI(li LedgerInfo) message.LedgerInfo {
	return message.LedgerInfo{
		Version:        li.Version,
		Epoch:          li.Epoch,
		EndsEpoch:      li.EndsEpoch,
		TimestampUsecs: li.TimestampUsecs,
		TxAccumulator:  li.TxAccumulator,
		Signatures:     li.Signatures,
	}
}

func fromWireLI(w message.LedgerInfo) LedgerInfo {
	return LedgerInfo{
		Version:        w.Version,
		Epoch:          w.Epoch,
		EndsEpoch:      w.EndsEpoch,
		TimestampUsecs: w.TimestampUsecs,
		TxAccumulator:  w.TxAccumulator,
		Signatures:     w.Signatures,
	}
}

func toWireChunk(c TransactionListWithProof) (firstVersion *uint64, txns [][]byte, proof []byte) {
	return c.FirstVersion, c.Transactions, c.Proof
}

func fromWireChunk(firstVersion *uint64, txns [][]byte, proof []byte) TransactionListWithProof {
	return TransactionListWithProof{FirstVersion: firstVersion, Transactions: txns, Proof: proof}
}

// toWireTargetHighestAvailable builds a TargetHighestAvailableCode Target,
// optionally carrying the requester's own target_li so the responder can
// tell whether anything has actually changed (§4.3).
func toWireTargetHighestAvailable(targetLI *LedgerInfo, timeoutMs uint64) message.Target {
	t := message.Target{Code: message.TargetHighestAvailableCode, TimeoutMs: timeoutMs}
	if targetLI != nil {
		t.HasHighestTarget = true
		t.HighestTargetLI = toWireLI(*targetLI)
	}
	return t
}

// fromWireTargetHighestAvailable unpacks a TargetHighestAvailableCode
// Target's optional target_li and timeout_ms.
func fromWireTargetHighestAvailable(t message.Target) (targetLI *LedgerInfo, timeoutMs uint64) {
	if t.HasHighestTarget {
		li := fromWireLI(t.HighestTargetLI)
		targetLI = &li
	}
	return targetLI, t.TimeoutMs
}

// toWireResponseLI builds a ResponseLI carrying li, optionally paired with
// aux (the highest_li or end_of_epoch_li a ResponseLI variant may carry
// alongside its primary LedgerInfo).
func toWireResponseLI(code uint8, li LedgerInfo, aux *LedgerInfo) message.ResponseLI {
	r := message.ResponseLI{Code: code, LedgerInfo: toWireLI(li)}
	if aux != nil {
		r.HasAux = true
		r.Aux = toWireLI(*aux)
	}
	return r
}

// fromWireResponseAux unpacks a ResponseLI's optional aux LedgerInfo.
func fromWireResponseAux(r message.ResponseLI) *LedgerInfo {
	if !r.HasAux {
		return nil
	}
	li := fromWireLI(r.Aux)
	return &li
}
