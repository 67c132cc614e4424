package pricing

import (
	"fmt"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

// Rule is the percentage adjustment a payment method carries, applied to the base amount.
// A rule carries a discount or a surcharge, never both.
type Rule struct {
	DiscountPercent  decimal.Decimal
	SurchargePercent decimal.Decimal
}

// RuleTable maps payment methods to their adjustment at one call site
type RuleTable map[models.PaymentMethod]Rule

// TripRules reward UPI and cards with a discount
func TripRules() RuleTable {
	return RuleTable{
		models.MethodUPI:        {DiscountPercent: decimal.NewFromInt(5)},
		models.MethodCreditCard: {DiscountPercent: decimal.NewFromInt(3)},
		models.MethodDebitCard:  {DiscountPercent: decimal.NewFromInt(3)},
	}
}

// EventRules charge a card processing surcharge and leave UPI untouched
func EventRules() RuleTable {
	return RuleTable{
		models.MethodUPI:        {},
		models.MethodCreditCard: {SurchargePercent: decimal.NewFromInt(3)},
		models.MethodDebitCard:  {SurchargePercent: decimal.NewFromInt(3)},
	}
}

// RulesFor returns the default table of a checkout site
func RulesFor(site models.CheckoutKind) RuleTable {
	if site == models.CheckoutEvent {
		return EventRules()
	}
	return TripRules()
}

// Engine prices checkouts for a single call site. It performs no I/O.
type Engine struct {
	site     models.CheckoutKind
	rules    RuleTable
	emiFloor int64
}

// NewEngine creates an engine with the default rules of the site
func NewEngine(site models.CheckoutKind, emiFloor int64) *Engine {
	return &Engine{site: site, rules: RulesFor(site), emiFloor: emiFloor}
}

// NewEngineWithRules creates an engine with a custom rule table
func NewEngineWithRules(site models.CheckoutKind, rules RuleTable, emiFloor int64) (*Engine, error) {
	for method, rule := range rules {
		if rule.DiscountPercent.IsNegative() || rule.SurchargePercent.IsNegative() {
			return nil, fmt.Errorf("rule for %s: percentages must not be negative", method)
		}
		if !rule.DiscountPercent.IsZero() && !rule.SurchargePercent.IsZero() {
			return nil, fmt.Errorf("rule for %s: discount and surcharge are exclusive", method)
		}
		if rule.DiscountPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("rule for %s: discount above 100%%", method)
		}
	}
	return &Engine{site: site, rules: rules, emiFloor: emiFloor}, nil
}

func (e *Engine) Site() models.CheckoutKind { return e.site }

func (e *Engine) EmiFloor() int64 { return e.emiFloor }

// BaseAmount sums unitPrice x quantity exactly, without intermediate rounding
func BaseAmount(items []models.LineItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, models.NewValidationError("items", "at least one line item is required")
	}

	total := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return decimal.Zero, models.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return decimal.Zero, models.NewValidationError(fmt.Sprintf("items[%d].unitPrice", i), "must not be negative")
		}
		total = total.Add(item.Subtotal())
	}
	return total, nil
}

// Quote prices the line items for a payment method. When an EMI plan is attached the
// method adjustment is bypassed: the displayed total becomes the plan total while the
// charge stays tied to the base amount. The plan is recomputed from the base amount, so
// only its tenure and rate are taken from the caller.
func (e *Engine) Quote(items []models.LineItem, method models.PaymentMethod, emi *models.EmiPlan) (*models.PricingQuote, error) {
	if !method.Valid() {
		return nil, models.NewValidationError("method", fmt.Sprintf("unsupported payment method %q", method))
	}

	base, err := BaseAmount(items)
	if err != nil {
		return nil, err
	}
	baseAmount := base.Round(0).IntPart()

	quote := &models.PricingQuote{
		Site:       e.site,
		Method:     method,
		BaseAmount: baseAmount,
	}

	if emi != nil {
		if method != models.MethodCreditCard {
			return nil, models.NewValidationError("method", "EMI is only available on credit cards")
		}
		if baseAmount < e.emiFloor {
			return nil, models.NewValidationError("emiPlan", fmt.Sprintf("order total %d is below the EMI minimum of %d", baseAmount, e.emiFloor))
		}

		plan, err := CalculateEmi(baseAmount, emi.TenureMonths, decimal.NewFromFloat(emi.AnnualInterestRate))
		if err != nil {
			return nil, err
		}

		quote.EmiPlan = &plan
		quote.InterestAmount = plan.InterestAmount
		quote.FinalAmount = plan.TotalAmount
		quote.ChargeAmount = baseAmount
		return quote, nil
	}

	rule := e.rules[method]
	discount := percentOf(base, rule.DiscountPercent)
	surcharge := percentOf(base, rule.SurchargePercent)

	quote.DiscountPercent = rule.DiscountPercent.InexactFloat64()
	quote.DiscountAmount = discount
	quote.SurchargePercent = rule.SurchargePercent.InexactFloat64()
	quote.SurchargeAmount = surcharge
	quote.FinalAmount = baseAmount - discount + surcharge
	if quote.FinalAmount < 0 {
		quote.FinalAmount = 0
	}
	quote.ChargeAmount = quote.FinalAmount

	return quote, nil
}

// percentOf returns amount x percent / 100 rounded to whole units
func percentOf(amount, percent decimal.Decimal) int64 {
	if percent.IsZero() {
		return 0
	}
	return amount.Mul(percent).Div(hundred).Round(0).IntPart()
}
