package task

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// startProcessing runs job and records exactly one terminal state for taskID,
// whether the job returns normally, returns an error or panics.
func (m *Manager) startProcessing(taskID string, kind Kind, job Job) {
	logger := log.With().Str("task_id", taskID).Str("kind", string(kind)).Logger()
	ctx := logger.WithContext(m.base())

	var (
		result Result
		err    error
	)
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("job panicked: %v", recovered)
			logger.Error().Interface("panic", recovered).Msg("job panicked")
		}
		m.finish(taskID, result, err)
	}()

	logger.Info().Msg("task started")
	if job == nil {
		err = fmt.Errorf("no job body for task %s", taskID)
		return
	}
	result, err = job(ctx, taskID)
}

func (m *Manager) finish(taskID string, result Result, jobErr error) {
	var state State = Completed{Result: result}
	if jobErr != nil {
		state = Failed{Message: jobErr.Error()}
	}
	if err := m.store.SetTerminal(taskID, state); err != nil {
		log.Error().Str("task_id", taskID).Err(err).Msg("record terminal state failed")
		return
	}

	if jobErr != nil {
		log.Warn().Str("task_id", taskID).Err(jobErr).Msg("task failed")
		return
	}
	log.Info().Str("task_id", taskID).Msg("task completed")
}
