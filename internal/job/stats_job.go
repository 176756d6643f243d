package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/service"
)

// StoreStatsJob periodically logs the retrieval index shape so operators can
// watch memory growth on a long-lived process.
type StoreStatsJob struct {
	ingest *service.IngestService
}

func NewStoreStatsJob(ingest *service.IngestService) *StoreStatsJob {
	return &StoreStatsJob{ingest: ingest}
}

func (j *StoreStatsJob) Name() string {
	return "store_stats"
}

func (j *StoreStatsJob) Run(ctx context.Context) error {
	if j.ingest == nil {
		return nil
	}
	st := j.ingest.Stats()
	logutil.GetLogger(ctx).Info("retrieval store stats",
		zap.Int("total_chunks", st.TotalChunks),
		zap.Int("index_size", st.IndexSize),
		zap.Int("dimension", st.Dimension),
		zap.String("model", st.Model),
	)
	return nil
}
