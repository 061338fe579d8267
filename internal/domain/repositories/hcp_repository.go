package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
)

// HCPDirectory is the read-only view of the HCP directory used by the core
type HCPDirectory interface {
	// GetHCP retrieves an HCP profile; a missing HCP yields a NOT_FOUND AppError
	GetHCP(ctx context.Context, id string) (*entities.HCP, error)

	// GetRecentContacts returns up to n contacts ordered most recent first
	GetRecentContacts(ctx context.Context, hcpID string, n int) ([]entities.Contact, error)

	// GetRecentPrescriptions returns up to n prescriptions ordered most recent first
	GetRecentPrescriptions(ctx context.Context, hcpID string, n int) ([]entities.Prescription, error)

	// CountActiveHCPs counts HCPs flagged active
	CountActiveHCPs(ctx context.Context) (int, error)

	// CountContactsSince counts contacts across all HCPs at or after since
	CountContactsSince(ctx context.Context, since time.Time) (int, error)

	// ListTopEngagedHCPs returns the n active HCPs with the highest engagement
	ListTopEngagedHCPs(ctx context.Context, n int) ([]entities.HCPRanking, error)
}

// PrescriptionAttributionRepository aggregates prescriptions attributed to executed recommendations
type PrescriptionAttributionRepository interface {
	// AttributedTotals returns the count and total value of attributed prescriptions
	AttributedTotals(ctx context.Context) (count int, value float64, err error)

	// TopProducts ranks products by attributed prescription count
	TopProducts(ctx context.Context, n int) ([]entities.ProductRanking, error)
}
