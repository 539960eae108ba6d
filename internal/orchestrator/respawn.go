package orchestrator

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/whirlun/emigo-go/internal/logging"
)

const (
	// respawnInitialInterval is the first wait before retrying a crashed
	// Worker respawn.
	respawnInitialInterval = 500 * time.Millisecond
	// respawnMaxInterval caps the exponential backoff between attempts.
	respawnMaxInterval = 30 * time.Second
	// respawnMaxElapsedTime bounds how long handleWorkerExit keeps
	// retrying before giving up and leaving the Worker stopped.
	respawnMaxElapsedTime = 2 * time.Minute
)

// newRespawnBackoff builds an exponential backoff with jitter for Worker
// respawn attempts, the same shape the teacher uses for LLM API retries.
func newRespawnBackoff(o *Orchestrator) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = respawnInitialInterval
	b.MaxInterval = respawnMaxInterval
	b.MaxElapsedTime = respawnMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(b, o.ctx)
}

// respawnAfterCrash retries spawnWorker with exponential backoff until it
// succeeds or the backoff gives up, so a Worker that crashes repeatedly
// (bad config, OOM, a flaky dependency) doesn't leave the Orchestrator
// hammering exec.Command in a tight loop. Called from handleWorkerExit,
// which has already confirmed the exit was unintentional.
func (o *Orchestrator) respawnAfterCrash() {
	retryBackoff := newRespawnBackoff(o)

	for {
		proc, err := spawnWorker(o.ctx, o.workerCmd)
		if err == nil {
			o.mu.Lock()
			o.proc = proc
			o.mu.Unlock()
			go o.routeLoop(proc)
			logging.Logger.Info().Msg("orchestrator: worker respawned after crash")
			return
		}

		nextInterval := retryBackoff.NextBackOff()
		if nextInterval == backoff.Stop {
			logging.Logger.Error().Err(err).Msg("orchestrator: giving up respawning worker after repeated crashes")
			o.frontend.Message("worker keeps crashing, giving up on automatic restart")
			return
		}

		logging.Logger.Warn().Err(err).Dur("retry_in", nextInterval).Msg("orchestrator: worker respawn failed, retrying")
		time.Sleep(nextInterval)
	}
}
