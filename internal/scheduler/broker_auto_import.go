package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

// AutoImporter runs the imports of stored broker connections.
type AutoImporter interface {
	AutoImport(ctx context.Context) (int, error)
}

// BrokerAutoImportJob imports new trades from every stored broker connection.
type BrokerAutoImportJob struct {
	importer AutoImporter
	log      zerolog.Logger
}

// NewBrokerAutoImportJob creates a new broker auto import job
func NewBrokerAutoImportJob(importer AutoImporter, log zerolog.Logger) *BrokerAutoImportJob {
	return &BrokerAutoImportJob{
		importer: importer,
		log:      log.With().Str("job", "broker_auto_import").Logger(),
	}
}

// Name returns the job name
func (j *BrokerAutoImportJob) Name() string {
	return "broker_auto_import"
}

func (j *BrokerAutoImportJob) Run(ctx context.Context) error {
	n, err := j.importer.AutoImport(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("connections", n).Msg("auto import finished")
	return nil
}
