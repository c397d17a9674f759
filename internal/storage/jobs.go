package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/HankJediAssistant/hank-board/internal/domain"
)

// JobStore reads the scheduled job file maintained by the external scheduler.
// It never writes to it.
type JobStore struct {
	path   string
	logger log.FieldLogger
}

// NewJobStore returns a reader for the jobs file at path.
func NewJobStore(path string, logger log.FieldLogger) *JobStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &JobStore{path: path, logger: logger}
}

type jobsFile struct {
	Jobs []domain.Job `json:"jobs"`
}

// Jobs returns the current job list. A missing file means no jobs; any other
// failure is logged and also yields no jobs.
func (s *JobStore) Jobs(ctx context.Context) []domain.Job {
	jobs, err := s.load(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("failed to read scheduled jobs")
		return []domain.Job{}
	}
	return jobs
}

func (s *JobStore) load(ctx context.Context) ([]domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Job{}, nil
	}
	if err != nil {
		return nil, err
	}
	var f jobsFile
	if err := sonic.ConfigStd.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Jobs == nil {
		return []domain.Job{}, nil
	}
	return f.Jobs, nil
}
