package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

// MerchantReport is one merchant's settlement line for a window.
type MerchantReport struct {
	EstablishmentID uuid.UUID `json:"establishment_id"`
	GrossCents      int64     `json:"gross_cents"`
	CommissionCents int64     `json:"commission_cents"`
	BoostCents      int64     `json:"boost_cents"`
	NetPayableCents int64     `json:"net_payable_cents"`
	OrderCount      int64     `json:"order_count"`
	BoostCount      int64     `json:"boost_count"`
}

// Report is the platform-wide settlement for a window. The totals are sums of
// the per-merchant lines; gross, commission, and boost revenue are kept as
// three separate accumulators and never netted into each other.
type Report struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	CommissionRate  string           `json:"commission_rate"`
	Merchants       []MerchantReport `json:"merchants"`
	GrossCents      int64            `json:"gross_cents"`
	CommissionCents int64            `json:"commission_cents"`
	BoostCents      int64            `json:"boost_cents"`
	NetPayableCents int64            `json:"net_payable_cents"`
}

// Service produces settlement reports over completed orders and boost usage.
type Service interface {
	Report(ctx context.Context, from, to time.Time) (*Report, error)
	MerchantReport(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) (*MerchantReport, error)
}

type service struct {
	repo Repository
	rate decimal.Decimal
}

// NewService builds a settlement service with the configured commission rate.
func NewService(repo Repository, commissionRate string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	rate, err := decimal.NewFromString(commissionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate %q: %w", commissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate %q out of range", commissionRate)
	}
	return &service{repo: repo, rate: rate}, nil
}

func (s *service) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window must end after it starts")
	}
	volumes, err := s.repo.CompletedVolumeByMerchant(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate completed orders")
	}
	boosts, err := s.repo.BoostSpendByMerchant(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate boost usage")
	}

	report := Compute(volumes, boosts, s.rate)
	report.From = from
	report.To = to
	if err := Verify(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *service) MerchantReport(ctx context.Context, establishmentID uuid.UUID, from, to time.Time) (*MerchantReport, error) {
	if establishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment context missing")
	}
	report, err := s.Report(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for i := range report.Merchants {
		if report.Merchants[i].EstablishmentID == establishmentID {
			return &report.Merchants[i], nil
		}
	}
	return &MerchantReport{EstablishmentID: establishmentID}, nil
}

// Compute is the pure settlement function. Per merchant, commission is carved
// out of gross volume and boost fees are a separate deduction; the platform
// totals are sums of the per-merchant values, so the carve-out invariant
// holds by construction rather than by floating-point luck.
func Compute(volumes []MerchantVolume, boosts []MerchantBoost, rate decimal.Decimal) *Report {
	boostByMerchant := make(map[uuid.UUID]MerchantBoost, len(boosts))
	for _, b := range boosts {
		boostByMerchant[b.EstablishmentID] = b
	}

	merchants := make(map[uuid.UUID]*MerchantReport)
	for _, v := range volumes {
		merchants[v.EstablishmentID] = &MerchantReport{
			EstablishmentID: v.EstablishmentID,
			GrossCents:      v.GrossCents,
			OrderCount:      v.OrderCount,
		}
	}
	for id, b := range boostByMerchant {
		line, ok := merchants[id]
		if !ok {
			line = &MerchantReport{EstablishmentID: id}
			merchants[id] = line
		}
		line.BoostCents = b.BoostCents
		line.BoostCount = b.BoostCount
	}

	ids := make([]uuid.UUID, 0, len(merchants))
	for id := range merchants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	report := &Report{CommissionRate: rate.String()}
	for _, id := range ids {
		line := merchants[id]
		line.CommissionCents = decimal.NewFromInt(line.GrossCents).Mul(rate).Round(0).IntPart()
		line.NetPayableCents = line.GrossCents - line.CommissionCents - line.BoostCents

		report.Merchants = append(report.Merchants, *line)
		report.GrossCents += line.GrossCents
		report.CommissionCents += line.CommissionCents
		report.BoostCents += line.BoostCents
		report.NetPayableCents += line.NetPayableCents
	}
	return report
}

// Verify checks the carve-out invariant:
//
//	Σ net_payable + commission + boost_revenue == gross_volume
//
// A violation means money was double-counted somewhere; it surfaces as
// SettlementInconsistent to internal checks, never to end users.
func Verify(report *Report) error {
	if report == nil {
		return pkgerrors.New(pkgerrors.CodeSettlementInconsistent, "report missing")
	}
	var netSum, commissionSum, boostSum, grossSum int64
	for _, line := range report.Merchants {
		netSum += line.NetPayableCents
		commissionSum += line.CommissionCents
		boostSum += line.BoostCents
		grossSum += line.GrossCents
	}
	if netSum != report.NetPayableCents ||
		commissionSum != report.CommissionCents ||
		boostSum != report.BoostCents ||
		grossSum != report.GrossCents {
		return pkgerrors.New(pkgerrors.CodeSettlementInconsistent, "totals do not match per-merchant lines")
	}
	if netSum+report.CommissionCents+report.BoostCents != report.GrossCents {
		return pkgerrors.New(pkgerrors.CodeSettlementInconsistent, "net, commission, and boost do not reconstruct gross volume")
	}
	return nil
}
