package settlement

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
)

type stubRepo struct {
	volumes []MerchantVolume
	boosts  []MerchantBoost
}

func (s *stubRepo) CompletedVolumeByMerchant(ctx context.Context, from, to time.Time) ([]MerchantVolume, error) {
	return s.volumes, nil
}

func (s *stubRepo) BoostSpendByMerchant(ctx context.Context, from, to time.Time) ([]MerchantBoost, error) {
	return s.boosts, nil
}

func TestComputeConcreteScenario(t *testing.T) {
	merchant := uuid.New()
	rate := decimal.RequireFromString("0.15")

	report := Compute(
		[]MerchantVolume{{EstablishmentID: merchant, GrossCents: 3000, OrderCount: 3}},
		[]MerchantBoost{{EstablishmentID: merchant, BoostCents: 200, BoostCount: 1}},
		rate,
	)

	if report.GrossCents != 3000 {
		t.Fatalf("expected gross 3000, got %d", report.GrossCents)
	}
	if report.CommissionCents != 450 {
		t.Fatalf("expected commission 450, got %d", report.CommissionCents)
	}
	if report.BoostCents != 200 {
		t.Fatalf("expected boost revenue 200, got %d", report.BoostCents)
	}
	if report.NetPayableCents != 2350 {
		t.Fatalf("expected net payable 2350, got %d", report.NetPayableCents)
	}
	if len(report.Merchants) != 1 {
		t.Fatalf("expected one merchant line, got %d", len(report.Merchants))
	}
	line := report.Merchants[0]
	if line.NetPayableCents != 2350 || line.OrderCount != 3 || line.BoostCount != 1 {
		t.Fatalf("unexpected merchant line: %+v", line)
	}
	if err := Verify(report); err != nil {
		t.Fatalf("unexpected verify failure: %v", err)
	}
}

func TestComputeCarveOutInvariantRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rate := decimal.RequireFromString("0.15")

	for run := 0; run < 50; run++ {
		merchantCount := 1 + rng.Intn(8)
		volumes := make([]MerchantVolume, 0, merchantCount)
		boosts := make([]MerchantBoost, 0, merchantCount)
		for i := 0; i < merchantCount; i++ {
			id := uuid.New()
			volumes = append(volumes, MerchantVolume{
				EstablishmentID: id,
				GrossCents:      int64(rng.Intn(500_000)),
				OrderCount:      int64(1 + rng.Intn(20)),
			})
			if rng.Intn(2) == 0 {
				boosts = append(boosts, MerchantBoost{
					EstablishmentID: id,
					BoostCents:      int64(rng.Intn(5_000)),
					BoostCount:      1,
				})
			}
		}

		report := Compute(volumes, boosts, rate)
		if err := Verify(report); err != nil {
			t.Fatalf("run %d: invariant violated: %v", run, err)
		}

		var net, commission, boost int64
		for _, line := range report.Merchants {
			net += line.NetPayableCents
			commission += line.CommissionCents
			boost += line.BoostCents
		}
		if net+commission+boost != report.GrossCents {
			t.Fatalf("run %d: net %d + commission %d + boost %d != gross %d",
				run, net, commission, boost, report.GrossCents)
		}
	}
}

func TestComputeDeterministicOrdering(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	rate := decimal.RequireFromString("0.15")
	volumes := []MerchantVolume{
		{EstablishmentID: c, GrossCents: 100},
		{EstablishmentID: a, GrossCents: 200},
		{EstablishmentID: b, GrossCents: 300},
	}

	first := Compute(volumes, nil, rate)
	second := Compute([]MerchantVolume{volumes[1], volumes[2], volumes[0]}, nil, rate)

	if len(first.Merchants) != len(second.Merchants) {
		t.Fatal("merchant line counts differ")
	}
	for i := range first.Merchants {
		if first.Merchants[i] != second.Merchants[i] {
			t.Fatalf("line %d differs between input orderings", i)
		}
	}
}

func TestComputeBoostOnlyMerchant(t *testing.T) {
	merchant := uuid.New()
	report := Compute(nil, []MerchantBoost{{EstablishmentID: merchant, BoostCents: 300, BoostCount: 2}}, decimal.RequireFromString("0.15"))

	if len(report.Merchants) != 1 {
		t.Fatalf("expected boost-only merchant line, got %d lines", len(report.Merchants))
	}
	if report.Merchants[0].NetPayableCents != -300 {
		t.Fatalf("expected net payable -300, got %d", report.Merchants[0].NetPayableCents)
	}
	if err := Verify(report); err != nil {
		t.Fatalf("unexpected verify failure: %v", err)
	}
}

func TestVerifyDetectsTamperedTotals(t *testing.T) {
	merchant := uuid.New()
	report := Compute([]MerchantVolume{{EstablishmentID: merchant, GrossCents: 1000}}, nil, decimal.RequireFromString("0.15"))
	report.CommissionCents++

	err := Verify(report)
	if err == nil {
		t.Fatal("expected verify to fail on tampered totals")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeSettlementInconsistent {
		t.Fatalf("expected settlement inconsistency, got %v", err)
	}
}

func TestServiceReportValidatesWindow(t *testing.T) {
	svc, err := NewService(&stubRepo{}, "0.15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Now().UTC()
	if _, err := svc.Report(context.Background(), now, now); err == nil {
		t.Fatal("expected error for empty window")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceMerchantReportUnknownMerchant(t *testing.T) {
	svc, err := NewService(&stubRepo{
		volumes: []MerchantVolume{{EstablishmentID: uuid.New(), GrossCents: 1000, OrderCount: 1}},
	}, "0.15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := uuid.New()
	now := time.Now().UTC()
	line, err := svc.MerchantReport(context.Background(), other, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.EstablishmentID != other || line.GrossCents != 0 || line.NetPayableCents != 0 {
		t.Fatalf("expected zero line for unknown merchant, got %+v", line)
	}
}

func TestNewServiceRejectsBadRate(t *testing.T) {
	if _, err := NewService(&stubRepo{}, "fifteen"); err == nil {
		t.Fatal("expected error for malformed rate")
	}
	if _, err := NewService(&stubRepo{}, "1.5"); err == nil {
		t.Fatal("expected error for rate above 1")
	}
}
