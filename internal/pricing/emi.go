package pricing

import (
	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// MaxTenureMonths bounds the schedules we are willing to compute
const MaxTenureMonths = 60

var (
	one         = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
	monthlyBase = decimal.NewFromInt(1200) // 12 months x 100 percent
)

// CalculateEmi builds a reducing-balance installment plan.
//
//	monthly = P * r * (1+r)^n / ((1+r)^n - 1), r = annualRate / 12 / 100
//
// The monthly amount is rounded up so the lender never under-collects. A zero rate is a
// no-cost plan: monthly = ceil(P / n), the total equals the principal exactly and the last
// installment absorbs the remainder. A tenure too long for the principal to leave a positive
// last installment is rejected.
func CalculateEmi(principal int64, months int, annualRatePercent decimal.Decimal) (models.EmiPlan, error) {
	if principal < 0 {
		return models.EmiPlan{}, models.NewValidationError("principal", "must not be negative")
	}
	if months <= 0 || months > MaxTenureMonths {
		return models.EmiPlan{}, models.NewValidationError("tenureMonths", "must be between 1 and 60")
	}
	if annualRatePercent.IsNegative() {
		return models.EmiPlan{}, models.NewValidationError("annualInterestRate", "must not be negative")
	}

	p := decimal.NewFromInt(principal)
	n := int64(months)

	plan := models.EmiPlan{
		TenureMonths:       months,
		AnnualInterestRate: annualRatePercent.InexactFloat64(),
		Principal:          principal,
	}

	if annualRatePercent.IsZero() {
		monthly := p.Div(decimal.NewFromInt(n)).Ceil().IntPart()
		last := principal - monthly*(n-1)
		if principal > 0 && last <= 0 {
			return models.EmiPlan{}, models.NewValidationError("tenureMonths", "too long for a no-cost plan on this amount")
		}
		plan.MonthlyAmount = monthly
		plan.FinalInstallment = last
		plan.TotalAmount = principal
		plan.InterestAmount = 0
		plan.IsNoCost = true
		return plan, nil
	}

	r := annualRatePercent.Div(monthlyBase)
	growth := compound(one.Add(r), months)
	monthly := p.Mul(r).Mul(growth).Div(growth.Sub(one)).Ceil().IntPart()

	plan.MonthlyAmount = monthly
	plan.FinalInstallment = monthly
	plan.TotalAmount = monthly * n
	plan.InterestAmount = plan.TotalAmount - principal
	return plan, nil
}

// compound returns base^n for a positive integer n
func compound(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for i := 0; i < n; i++ {
		result = result.Mul(base)
	}
	return result
}
