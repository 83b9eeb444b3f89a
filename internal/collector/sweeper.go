// Package collector runs the periodic sweep that removes abandoned guest
// accounts and resolves ownership of the resources they leave behind.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/guestgc/internal/errs"
	"github.com/and161185/guestgc/internal/guard"
	"github.com/and161185/guestgc/internal/lock"
	"github.com/and161185/guestgc/internal/model"
	"github.com/and161185/guestgc/internal/presence"
	"github.com/and161185/guestgc/internal/repository"
	"github.com/and161185/guestgc/internal/resolve"
)

// Processing locks live in their own key space, distinct from the guard's
// lifecycle leases.
const processingKeyFormat = "collector:account:%s"

// Config controls sweep cadence and safety margins.
type Config struct {
	SweepInterval time.Duration // period between sweeps
	GracePeriod   time.Duration // how long an account must stay disconnected before it is eligible
	ProcessingTTL time.Duration // per-account processing lock TTL
	MaxConcurrent int           // bounded parallelism across candidates
}

func (c *Config) applyDefaults() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 30 * time.Second
	}
	if c.GracePeriod < 0 {
		c.GracePeriod = 0
	}
	if c.ProcessingTTL <= 0 {
		c.ProcessingTTL = time.Minute
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
}

// Sweeper drives one collector instance. Any number of instances may run
// concurrently across the fleet; the per-account processing lock makes
// overlap safe. The presence registry is read-only here.
type Sweeper struct {
	accounts  repository.AccountRepository
	resources repository.ResourceRepository
	groups    repository.GroupRepository
	registry  presence.Registry
	locks     lock.Service
	guard     *guard.Guard
	log       *zap.Logger
	cfg       Config
}

// New constructs a Sweeper.
func New(
	accounts repository.AccountRepository,
	resources repository.ResourceRepository,
	groups repository.GroupRepository,
	registry presence.Registry,
	locks lock.Service,
	g *guard.Guard,
	log *zap.Logger,
	cfg Config,
) *Sweeper {
	cfg.applyDefaults()
	return &Sweeper{
		accounts:  accounts,
		resources: resources,
		groups:    groups,
		registry:  registry,
		locks:     locks,
		guard:     g,
		log:       log,
		cfg:       cfg,
	}
}

// Run executes sweeps every cfg.SweepInterval until ctx is done. Sweeps on
// one instance never overlap: a pass still in flight makes the next tick a
// no-op.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.cfg.SweepInterval), func() {
		if err := s.Sweep(ctx); err != nil {
			s.log.Warn("sweep aborted, retrying next period", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	s.log.Info("collector started", zap.Duration("sweep_interval", s.cfg.SweepInterval))

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("collector stopped")
	return nil
}

// Sweep performs one pass: purge expired presence records, enumerate
// candidates, and process each candidate under its own processing lock.
// Failures local to one candidate are isolated; only lock-service failures
// abort the pass, since no destructive action is taken without a held lock.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if n, err := s.registry.PurgeExpired(ctx); err != nil {
		return fmt.Errorf("purge expired connections: %w", err)
	} else if n > 0 {
		s.log.Debug("purged expired connection records", zap.Int64("count", n))
	}

	eligibleSince := time.Now().Add(-s.cfg.GracePeriod)
	candidates, err := s.accounts.ListCollectable(ctx, eligibleSince)
	if err != nil {
		return fmt.Errorf("list collectable accounts: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}
	s.log.Debug("sweep candidates", zap.Int("count", len(candidates)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, id := range candidates {
		g.Go(func() error {
			key := fmt.Sprintf(processingKeyFormat, id)
			lease, err := s.locks.Acquire(gctx, key, s.cfg.ProcessingTTL)
			if errors.Is(err, errs.ErrLockBusy) {
				// another instance is on it
				s.log.Debug("skipping account being processed elsewhere", zap.String("account_id", id.String()))
				return nil
			}
			if err != nil {
				return fmt.Errorf("acquire processing lock: %w", err)
			}
			defer func() {
				// another candidate may have cancelled the group context;
				// the lock must still be freed rather than pinned until TTL
				if rerr := s.locks.Release(context.WithoutCancel(gctx), lease); rerr != nil {
					s.log.Debug("release processing lock", zap.String("account_id", id.String()), zap.Error(rerr))
				}
			}()

			if err := s.collect(gctx, id); err != nil {
				s.log.Warn("failed to collect account, retrying next sweep",
					zap.String("account_id", id.String()), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// collect removes one candidate account under a held processing lock.
// Eligibility is re-checked here: presence or lifecycle state may have
// changed since enumeration.
func (s *Sweeper) collect(ctx context.Context, accountID uuid.UUID) error {
	if held, err := s.guard.HeldFor(ctx, accountID); err != nil {
		return fmt.Errorf("check lifecycle lease: %w", err)
	} else if held {
		s.log.Debug("skipping account protected by lifecycle lease", zap.String("account_id", accountID.String()))
		return nil
	}

	conns, err := s.registry.Connections(ctx, accountID)
	if err != nil {
		return fmt.Errorf("check presence: %w", err)
	}
	if len(conns) > 0 {
		// reconnected since enumeration
		s.log.Debug("skipping account with live connections",
			zap.String("account_id", accountID.String()), zap.Int("connections", len(conns)))
		return nil
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil // already gone
	}
	if err != nil {
		return err
	}
	expired := acc.ExpiresAt != nil && !acc.ExpiresAt.After(time.Now())
	if acc.Role > model.RoleGuest && acc.Status != model.StatusMarkedForDeletion && !expired {
		// protection barrier: privileged accounts are never touched even
		// if enumeration raced a role change; a past hard expiry overrides
		// the role
		return nil
	}

	if err := s.releaseResources(ctx, acc); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("delete account: %w", err)
	}
	s.log.Info("removed guest account",
		zap.String("account_id", accountID.String()), zap.String("name", acc.Name))
	return nil
}

// releaseResources resolves every resource owned by the departing account:
// ownership moves to a write-capable principal when one exists, otherwise
// the resource is deleted with everything attached to it.
func (s *Sweeper) releaseResources(ctx context.Context, owner *model.Account) error {
	resourceIDs, err := s.resources.ListOwnedBy(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("list owned resources: %w", err)
	}

	for _, rid := range resourceIDs {
		res, err := s.resources.GetByID(ctx, rid)
		if errors.Is(err, errs.ErrNotFound) {
			continue // deleted since listing
		}
		if err != nil {
			return err
		}
		if res.OwnerID == uuid.Nil {
			// left for manual inspection, no safe automatic action exists
			s.log.Error("resource has no owner",
				zap.String("resource_id", rid.String()), zap.Error(errs.ErrInvariant))
			continue
		}
		if res.OwnerID != owner.ID {
			continue // legitimately transferred since listing
		}

		rights, err := s.resources.AccessRights(ctx, rid)
		if err != nil {
			return fmt.Errorf("get access rights: %w", err)
		}
		verdict, err := resolve.NewOwner(ctx, s.groups, rights, owner.ID)
		if err != nil {
			return fmt.Errorf("resolve new owner: %w", err)
		}

		if verdict.Delete {
			if err := s.resources.DeleteCascade(ctx, rid); err != nil {
				return fmt.Errorf("delete resource: %w", err)
			}
			s.log.Info("deleted resource with no remaining write-capable principal",
				zap.String("resource_id", rid.String()))
			continue
		}

		err = s.resources.ReassignOwner(ctx, rid, owner.ID, verdict.NewOwner)
		switch {
		case errors.Is(err, errs.ErrConflict):
			// someone else already resolved it, safe to drop
			s.log.Info("ownership already changed elsewhere", zap.String("resource_id", rid.String()))
		case err != nil:
			return fmt.Errorf("reassign owner: %w", err)
		default:
			s.log.Info("transferred resource ownership",
				zap.String("resource_id", rid.String()),
				zap.String("from", owner.ID.String()),
				zap.String("to", verdict.NewOwner.String()))
		}
	}
	return nil
}
