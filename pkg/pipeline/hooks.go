package pipeline

import (
	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"go.uber.org/zap"
)

// OperatorProcessed describes one operator at the end of its rebuild and fold.
type OperatorProcessed struct {
	OperatorId string
	Result     *reconstructor.OperatorResult
	State      *storage.OperatorState
	Err        error

	// Processed counts operators finished so far in this pass, including this one.
	Processed uint64
	Total     uint64
}

type OperatorProcessedHook func(op *OperatorProcessed)

func (p *Pipeline) handleOperatorProcessed(op *OperatorProcessed) {
	every := uint64(p.globalConfig.GetLogProgressEvery())
	if op.Processed%every == 0 || op.Processed == op.Total {
		p.logger.Sugar().Infow("Pipeline progress",
			zap.Uint64("processed", op.Processed),
			zap.Uint64("total", op.Total),
			zap.String("lastOperatorId", op.OperatorId),
		)
	}
	if p.OnOperatorProcessed != nil {
		p.OnOperatorProcessed(op)
	}
}
