package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// AssemblerOptions bounds how much history goes into a decision context.
type AssemblerOptions struct {
	ContactHistorySize int
	PrescriptionSize   int
	MinSignalRelevance int
	MaxSignals         int
}

// DefaultAssemblerOptions returns the standard context sizes.
func DefaultAssemblerOptions() AssemblerOptions {
	return AssemblerOptions{
		ContactHistorySize: 5,
		PrescriptionSize:   3,
		MinSignalRelevance: 7,
		MaxSignals:         3,
	}
}

// ContextAssembler gathers everything needed to decide on actions for one HCP.
type ContextAssembler struct {
	directory repositories.HCPDirectory
	catalog   repositories.CatalogRepository
	signals   repositories.SignalRepository
	settings  repositories.SettingsRepository
	opts      AssemblerOptions
	now       func() time.Time
}

// NewContextAssembler creates a new assembler. settings may be nil.
func NewContextAssembler(
	directory repositories.HCPDirectory,
	catalog repositories.CatalogRepository,
	signals repositories.SignalRepository,
	settings repositories.SettingsRepository,
	opts AssemblerOptions,
) *ContextAssembler {
	defaults := DefaultAssemblerOptions()
	if opts.ContactHistorySize <= 0 {
		opts.ContactHistorySize = defaults.ContactHistorySize
	}
	if opts.PrescriptionSize <= 0 {
		opts.PrescriptionSize = defaults.PrescriptionSize
	}
	if opts.MinSignalRelevance <= 0 {
		opts.MinSignalRelevance = defaults.MinSignalRelevance
	}
	if opts.MaxSignals <= 0 {
		opts.MaxSignals = defaults.MaxSignals
	}

	return &ContextAssembler{
		directory: directory,
		catalog:   catalog,
		signals:   signals,
		settings:  settings,
		opts:      opts,
		now:       time.Now,
	}
}

// Assemble issues the reads concurrently and joins them. Any failure fails
// the whole assembly; partial contexts are never returned.
func (a *ContextAssembler) Assemble(ctx context.Context, hcpID string) (*entities.DecisionContext, error) {
	if strings.TrimSpace(hcpID) == "" {
		return nil, apperrors.NewValidationError("hcp id is required")
	}

	ctx, span := observability.StartSpan(ctx, "ContextAssembler.Assemble")
	defer span.End()

	var in entities.DecisionContextInput
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hcp, err := a.directory.GetHCP(gctx, hcpID)
		if err != nil {
			return err
		}
		in.HCP = *hcp
		return nil
	})
	g.Go(func() error {
		contacts, err := a.directory.GetRecentContacts(gctx, hcpID, a.opts.ContactHistorySize)
		if err != nil {
			return fmt.Errorf("recent contacts: %w", err)
		}
		sort.SliceStable(contacts, func(i, j int) bool { return contacts[i].OccurredAt.After(contacts[j].OccurredAt) })
		if len(contacts) > a.opts.ContactHistorySize {
			contacts = contacts[:a.opts.ContactHistorySize]
		}
		in.RecentContacts = contacts
		return nil
	})
	g.Go(func() error {
		prescriptions, err := a.directory.GetRecentPrescriptions(gctx, hcpID, a.opts.PrescriptionSize)
		if err != nil {
			return fmt.Errorf("recent prescriptions: %w", err)
		}
		if len(prescriptions) > a.opts.PrescriptionSize {
			prescriptions = prescriptions[:a.opts.PrescriptionSize]
		}
		in.RecentPrescriptions = prescriptions
		return nil
	})
	g.Go(func() error {
		signals, err := a.signals.GetRelevantSignals(gctx, hcpID, a.opts.MinSignalRelevance, a.opts.MaxSignals)
		if err != nil {
			return fmt.Errorf("signals: %w", err)
		}
		relevant := make([]entities.Signal, 0, len(signals))
		for _, s := range signals {
			if s.Relevance >= a.opts.MinSignalRelevance && len(relevant) < a.opts.MaxSignals {
				relevant = append(relevant, s)
			}
		}
		in.Signals = relevant
		return nil
	})
	g.Go(func() error {
		products, err := a.catalog.GetActiveProducts(gctx)
		if err != nil {
			return fmt.Errorf("products: %w", err)
		}
		in.Products = products
		return nil
	})
	g.Go(func() error {
		content, err := a.catalog.GetActiveApprovedContent(gctx)
		if err != nil {
			return fmt.Errorf("approved content: %w", err)
		}
		in.ApprovedContent = content
		return nil
	})
	if a.settings != nil {
		g.Go(func() error {
			settings, err := a.settings.ListSettings(gctx)
			if err != nil {
				return fmt.Errorf("settings: %w", err)
			}
			in.Settings = settings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		return nil, apperrors.NewAssemblyError(fmt.Sprintf("failed to assemble decision context for hcp %s", hcpID), err)
	}

	in.AssembledAt = a.now().UTC()
	return entities.NewDecisionContext(in), nil
}
