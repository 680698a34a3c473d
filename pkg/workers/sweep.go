package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/hexconquest/pkg/log"
)

const DefaultSweepInterval = time.Minute

// JoinHistorySweeper forgets the join history of rooms nobody is in.
type JoinHistorySweeper interface {
	SweepJoinHistory(ctx context.Context) (int, error)
}

type RoomSweepWorker struct {
	sweeper  JoinHistorySweeper
	interval time.Duration
}

type NewRoomSweepWorkerOptions struct {
	Sweeper  JoinHistorySweeper
	Interval time.Duration
}

// NewRoomSweepWorker creates a new RoomSweepWorker.
// The worker periodically drops the join history of empty rooms.
func NewRoomSweepWorker(opts NewRoomSweepWorkerOptions) *RoomSweepWorker {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &RoomSweepWorker{
		sweeper:  opts.Sweeper,
		interval: interval,
	}
}

func (w *RoomSweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := w.sweeper.SweepJoinHistory(ctx)
			if err != nil {
				log.Error("Failed to sweep join history: %v", err)
				continue
			}
			if swept > 0 {
				log.Debug("Cleared join history of %d empty rooms", swept)
			}
		}
	}
}
