package recorder

import "CoinPulse/internal/model"

// Recorder keeps an append-only audit trail of ticks. It is never read
// back into the live series.
type Recorder interface {
	RecordTick(snap *model.Snapshot) error
	Close() error
}
