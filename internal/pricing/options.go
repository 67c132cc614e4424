package pricing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OptionsSource is the authoritative EMI options endpoint
type OptionsSource interface {
	GetEmiOptions(ctx context.Context, amount int64) (*models.EmiOptions, error)
}

// OptionsCache stores EMI options per amount
type OptionsCache interface {
	GetEmiOptions(ctx context.Context, amount int64) (*models.EmiOptions, error)
	SetEmiOptions(ctx context.Context, amount int64, opts *models.EmiOptions, ttl time.Duration) error
}

// PlanTerm is a tenure and annual rate pair
type PlanTerm struct {
	TenureMonths int
	AnnualRate   decimal.Decimal
}

// ParsePlanTerms parses "3:0,6:12,12:15" into tenure/rate pairs
func ParsePlanTerms(raw string) ([]PlanTerm, error) {
	var terms []PlanTerm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tenureStr, rateStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid plan term %q: want tenure:rate", part)
		}
		tenure, err := strconv.Atoi(strings.TrimSpace(tenureStr))
		if err != nil || tenure <= 0 {
			return nil, fmt.Errorf("invalid tenure in %q", part)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil || rate.IsNegative() {
			return nil, fmt.Errorf("invalid rate in %q", part)
		}
		terms = append(terms, PlanTerm{TenureMonths: tenure, AnnualRate: rate})
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("no plan terms in %q", raw)
	}
	return terms, nil
}

// Advisor answers which EMI plans are offered for an amount. It prefers the remote source,
// caches its answers and falls back to locally computed plans so checkout is never blocked.
type Advisor struct {
	source   OptionsSource
	cache    OptionsCache
	floor    int64
	fallback []PlanTerm
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAdvisor creates an advisor. cache may be nil.
func NewAdvisor(source OptionsSource, cache OptionsCache, floor int64, fallback []PlanTerm, cacheTTL time.Duration) *Advisor {
	return &Advisor{
		source:   source,
		cache:    cache,
		floor:    floor,
		fallback: fallback,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

func (a *Advisor) Floor() int64 { return a.floor }

// Options returns the plans offered for amount. It does not return an error: every failure
// of the remote source degrades to the fallback plans.
func (a *Advisor) Options(ctx context.Context, amount int64) *models.EmiOptions {
	ctx, span := util.StartSpan(ctx, "Advisor.Options")
	defer span.End()

	if amount < a.floor {
		util.EmiOptionsServedTotal.WithLabelValues(models.EmiSourceIneligible).Inc()
		return &models.EmiOptions{Amount: amount, Eligible: false, Options: []models.EmiPlan{}, Source: models.EmiSourceIneligible}
	}

	if a.cache != nil {
		cached, err := a.cache.GetEmiOptions(ctx, amount)
		if err != nil {
			a.logger.Warn("EMI options cache read failed", zap.Int64("amount", amount), zap.Error(err))
		} else if cached != nil {
			cached.Source = models.EmiSourceCache
			util.EmiOptionsServedTotal.WithLabelValues(models.EmiSourceCache).Inc()
			return cached
		}
	}

	remote, err := a.source.GetEmiOptions(ctx, amount)
	if err != nil {
		a.logger.Warn("EMI options source unavailable, using fallback plans",
			zap.Int64("amount", amount),
			zap.Error(err))
		return a.fallbackOptions(amount)
	}

	opts := a.normalize(amount, remote)
	if opts.Eligible && len(opts.Options) == 0 {
		a.logger.Warn("EMI options source returned no usable plans, using fallback plans", zap.Int64("amount", amount))
		return a.fallbackOptions(amount)
	}

	if a.cache != nil {
		if err := a.cache.SetEmiOptions(ctx, amount, opts, a.cacheTTL); err != nil {
			a.logger.Warn("EMI options cache write failed", zap.Int64("amount", amount), zap.Error(err))
		}
	}

	util.EmiOptionsServedTotal.WithLabelValues(models.EmiSourceRemote).Inc()
	return opts
}

// normalize recomputes every remote plan with CalculateEmi so remote and fallback
// amounts come from the same formula
func (a *Advisor) normalize(amount int64, remote *models.EmiOptions) *models.EmiOptions {
	opts := &models.EmiOptions{Amount: amount, Eligible: remote != nil && remote.Eligible, Options: []models.EmiPlan{}, Source: models.EmiSourceRemote}
	if !opts.Eligible {
		return opts
	}

	for _, p := range remote.Options {
		plan, err := CalculateEmi(amount, p.TenureMonths, decimal.NewFromFloat(p.AnnualInterestRate))
		if err != nil {
			a.logger.Warn("Skipping invalid remote EMI plan",
				zap.Int("tenure", p.TenureMonths),
				zap.Float64("rate", p.AnnualInterestRate),
				zap.Error(err))
			continue
		}
		if p.MonthlyAmount != 0 && p.MonthlyAmount != plan.MonthlyAmount {
			a.logger.Debug("Remote EMI amount differs from local computation",
				zap.Int("tenure", p.TenureMonths),
				zap.Int64("remote_monthly", p.MonthlyAmount),
				zap.Int64("local_monthly", plan.MonthlyAmount))
		}
		opts.Options = append(opts.Options, plan)
	}
	return opts
}

func (a *Advisor) fallbackOptions(amount int64) *models.EmiOptions {
	util.EmiOptionsServedTotal.WithLabelValues(models.EmiSourceFallback).Inc()
	return &models.EmiOptions{
		Amount:   amount,
		Eligible: true,
		Options:  FallbackPlans(amount, a.fallback),
		Source:   models.EmiSourceFallback,
	}
}

// FallbackPlans computes plans for the given terms, skipping invalid ones
func FallbackPlans(amount int64, terms []PlanTerm) []models.EmiPlan {
	plans := make([]models.EmiPlan, 0, len(terms))
	for _, t := range terms {
		plan, err := CalculateEmi(amount, t.TenureMonths, t.AnnualRate)
		if err != nil {
			continue
		}
		plans = append(plans, plan)
	}
	return plans
}
