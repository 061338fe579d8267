package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/nextbestaction/internal/adapters/fixtures"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/repositories"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
)

// Directory is an in-memory HCP directory, catalog, signal feed and
// settings store. Attribution consults the recommendation repository so
// only prescriptions tied to completed recommendations are counted.
type Directory struct {
	mu              sync.RWMutex
	hcps            map[string]entities.HCP
	contacts        []entities.Contact
	prescriptions   []entities.Prescription
	products        []entities.Product
	approvedContent []entities.ApprovedContent
	signals         []entities.Signal
	settings        []entities.SystemSetting

	recommendations repositories.RecommendationRepository
}

var (
	_ repositories.HCPDirectory                      = (*Directory)(nil)
	_ repositories.PrescriptionAttributionRepository = (*Directory)(nil)
	_ repositories.CatalogRepository                 = (*Directory)(nil)
	_ repositories.SignalRepository                  = (*Directory)(nil)
	_ repositories.SettingsRepository                = (*Directory)(nil)
)

// NewDirectory creates an empty directory. recommendations may be nil, in
// which case nothing is ever attributed.
func NewDirectory(recommendations repositories.RecommendationRepository) *Directory {
	return &Directory{
		hcps:            make(map[string]entities.HCP),
		recommendations: recommendations,
	}
}

// Load adds every record of ds.
func (d *Directory) Load(ds *fixtures.Dataset) {
	for _, hcp := range ds.HCPs {
		d.AddHCP(hcp)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts = append(d.contacts, ds.Contacts...)
	d.prescriptions = append(d.prescriptions, ds.Prescriptions...)
	d.products = append(d.products, ds.Products...)
	d.approvedContent = append(d.approvedContent, ds.ApprovedContent...)
	d.signals = append(d.signals, ds.Signals...)
	d.settings = append(d.settings, ds.Settings...)
}

func (d *Directory) AddHCP(hcp entities.HCP) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hcps[hcp.ID] = hcp.Clone()
}

func (d *Directory) AddContact(c entities.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts = append(d.contacts, c)
}

func (d *Directory) AddPrescription(p entities.Prescription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prescriptions = append(d.prescriptions, p)
}

func (d *Directory) AddProduct(p entities.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.products = append(d.products, p)
}

func (d *Directory) AddApprovedContent(c entities.ApprovedContent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.approvedContent = append(d.approvedContent, c)
}

func (d *Directory) AddSignal(s entities.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signals = append(d.signals, s)
}

func (d *Directory) AddSetting(s entities.SystemSetting) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = append(d.settings, s)
}

// GetHCP returns a copy of the HCP profile.
func (d *Directory) GetHCP(ctx context.Context, id string) (*entities.HCP, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hcp, ok := d.hcps[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hcp %s not found", id))
	}
	out := hcp.Clone()
	return &out, nil
}

// GetRecentContacts returns up to n contacts, most recent first.
func (d *Directory) GetRecentContacts(ctx context.Context, hcpID string, n int) ([]entities.Contact, error) {
	d.mu.RLock()
	out := make([]entities.Contact, 0)
	for _, c := range d.contacts {
		if c.HCPID == hcpID {
			out = append(out, c)
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// GetRecentPrescriptions returns up to n prescriptions, most recent first.
func (d *Directory) GetRecentPrescriptions(ctx context.Context, hcpID string, n int) ([]entities.Prescription, error) {
	d.mu.RLock()
	out := make([]entities.Prescription, 0)
	for _, p := range d.prescriptions {
		if p.HCPID == hcpID {
			out = append(out, p)
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (d *Directory) CountActiveHCPs(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, hcp := range d.hcps {
		if hcp.Active {
			n++
		}
	}
	return n, nil
}

func (d *Directory) CountContactsSince(ctx context.Context, since time.Time) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, c := range d.contacts {
		if !c.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// ListTopEngagedHCPs ranks active HCPs by interaction quality, then response rate.
func (d *Directory) ListTopEngagedHCPs(ctx context.Context, n int) ([]entities.HCPRanking, error) {
	d.mu.RLock()
	active := make([]entities.HCP, 0, len(d.hcps))
	for _, hcp := range d.hcps {
		if hcp.Active {
			active = append(active, hcp)
		}
	}
	d.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		a, b := active[i].Engagement, active[j].Engagement
		if a.InteractionQuality != b.InteractionQuality {
			return a.InteractionQuality > b.InteractionQuality
		}
		if a.ResponseRate != b.ResponseRate {
			return a.ResponseRate > b.ResponseRate
		}
		return active[i].ID < active[j].ID
	})
	if len(active) > n {
		active = active[:n]
	}

	rankings := make([]entities.HCPRanking, 0, len(active))
	for _, hcp := range active {
		rankings = append(rankings, entities.HCPRanking{
			HCPID:      hcp.ID,
			Name:       hcp.FullName(),
			Engagement: hcp.Engagement.InteractionQuality,
		})
	}
	return rankings, nil
}

// AttributedTotals counts prescriptions linked to completed recommendations.
func (d *Directory) AttributedTotals(ctx context.Context) (int, float64, error) {
	attributed, err := d.attributedPrescriptions(ctx)
	if err != nil {
		return 0, 0, err
	}

	value := 0.0
	for _, p := range attributed {
		value += p.Value
	}
	return len(attributed), value, nil
}

// TopProducts ranks products by attributed prescription count.
func (d *Directory) TopProducts(ctx context.Context, n int) ([]entities.ProductRanking, error) {
	attributed, err := d.attributedPrescriptions(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, p := range attributed {
		counts[p.ProductID]++
	}

	d.mu.RLock()
	names := make(map[string]string, len(d.products))
	for _, p := range d.products {
		names[p.ID] = p.Name
	}
	d.mu.RUnlock()

	rankings := make([]entities.ProductRanking, 0, len(counts))
	for id, count := range counts {
		rankings = append(rankings, entities.ProductRanking{ProductID: id, ProductName: names[id], Prescriptions: count})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Prescriptions != rankings[j].Prescriptions {
			return rankings[i].Prescriptions > rankings[j].Prescriptions
		}
		return rankings[i].ProductID < rankings[j].ProductID
	})
	if len(rankings) > n {
		rankings = rankings[:n]
	}
	return rankings, nil
}

func (d *Directory) attributedPrescriptions(ctx context.Context) ([]entities.Prescription, error) {
	if d.recommendations == nil {
		return nil, nil
	}

	d.mu.RLock()
	candidates := make([]entities.Prescription, 0)
	for _, p := range d.prescriptions {
		if p.RecommendationID != "" {
			candidates = append(candidates, p)
		}
	}
	d.mu.RUnlock()

	out := make([]entities.Prescription, 0, len(candidates))
	for _, p := range candidates {
		rec, err := d.recommendations.GetByID(ctx, p.RecommendationID)
		if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rec.State == entities.RecommendationStateCompleted {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetActiveProducts returns approved products ordered by name.
func (d *Directory) GetActiveProducts(ctx context.Context) ([]entities.Product, error) {
	d.mu.RLock()
	out := make([]entities.Product, 0, len(d.products))
	for _, p := range d.products {
		if p.Approved {
			out = append(out, p)
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetActiveApprovedContent returns active content, newest approval first.
func (d *Directory) GetActiveApprovedContent(ctx context.Context) ([]entities.ApprovedContent, error) {
	d.mu.RLock()
	out := make([]entities.ApprovedContent, 0, len(d.approvedContent))
	for _, c := range d.approvedContent {
		if c.Active {
			out = append(out, c)
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].ApprovedAt.After(out[j].ApprovedAt) })
	return out, nil
}

// GetRelevantSignals returns the newest signals mentioning hcpID at or above minRelevance.
func (d *Directory) GetRelevantSignals(ctx context.Context, hcpID string, minRelevance, limit int) ([]entities.Signal, error) {
	d.mu.RLock()
	out := make([]entities.Signal, 0)
	for _, s := range d.signals {
		if s.Relevance >= minRelevance && containsString(s.MentionedHCPIDs, hcpID) {
			out = append(out, s)
		}
	}
	d.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Directory) ListSettings(ctx context.Context) ([]entities.SystemSetting, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]entities.SystemSetting(nil), d.settings...), nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
