package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/repository"
	"github.com/fitloop/backend-auth/pkg/logger"
	"github.com/fitloop/backend-auth/pkg/retry"
	"github.com/fitloop/backend-auth/pkg/telemetry"
)

// ReconcilerConfig holds reconciler configuration
type ReconcilerConfig struct {
	// Interval between reconcile cycles
	Interval time.Duration
	// Retry policy for a single cycle
	Retry *retry.Config
}

// Reconciler re-provisions missing coach/client records for assigned roles.
// Role assignment treats the auxiliary write as best effort, so this job is
// the path that makes it eventually consistent. It also sweeps expired
// sessions while it is at it.
type Reconciler struct {
	rosterRepo  repository.RosterRepository
	sessionRepo repository.SessionRepository
	config      ReconcilerConfig
	log         *logger.Logger
	done        chan struct{}
}

// NewReconciler creates a new Reconciler
func NewReconciler(rosterRepo repository.RosterRepository, sessionRepo repository.SessionRepository, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Retry == nil {
		config.Retry = &retry.Config{
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		}
	}
	return &Reconciler{
		rosterRepo:  rosterRepo,
		sessionRepo: sessionRepo,
		config:      config,
		log:         logger.Get(),
		done:        make(chan struct{}),
	}
}

// Run executes reconcile cycles on a ticker until the context is canceled
func (r *Reconciler) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.log.Info("roster reconciler started",
		logger.Duration("interval", r.config.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("roster reconciler stopped")
			return
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

// Done is closed when Run has returned
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

// reconcileOnce runs one full cycle with retry on transient failures
func (r *Reconciler) reconcileOnce(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, "worker.reconcile")
	defer span.End()

	result := retry.Do(ctx, r.config.Retry, func(ctx context.Context) error {
		if err := r.reconcileRole(ctx, domain.RoleCoach); err != nil {
			return err
		}
		if err := r.reconcileRole(ctx, domain.RoleClient); err != nil {
			return err
		}
		return r.sessionRepo.DeleteExpired(ctx)
	})

	span.SetAttributes(attribute.Int("attempts", result.Attempts))
	if result.Err != nil {
		span.RecordError(result.LastError)
		span.SetStatus(codes.Error, result.Err.Error())
		r.log.Error("reconcile cycle failed",
			logger.Int("attempts", result.Attempts),
			logger.Err(result.LastError),
		)
		return
	}

	span.SetStatus(codes.Ok, "")
}

// reconcileRole provisions the auxiliary record for every user holding the
// role but missing their row
func (r *Reconciler) reconcileRole(ctx context.Context, role domain.Role) error {
	missing, err := r.rosterRepo.ListMissing(ctx, role)
	if err != nil {
		return err
	}

	for _, userID := range missing {
		switch role {
		case domain.RoleCoach:
			err = r.rosterRepo.UpsertCoach(ctx, userID)
		case domain.RoleClient:
			err = r.rosterRepo.UpsertClient(ctx, userID)
		}
		if err != nil {
			return err
		}
		r.log.Info("re-provisioned roster record",
			logger.String("user_id", userID),
			logger.String("role", string(role)),
		)
	}
	return nil
}
