package models

// CardType is the card brand picked for a half payment
type CardType string

const (
	CardCredit CardType = "credit"
	CardDebit  CardType = "debit"
)

// PaymentSelection is the customer's chosen payment path.
// EMI and half payment are mutually exclusive; use SelectEmi and SelectHalfPayment to switch.
type PaymentSelection struct {
	Method      PaymentMethod `json:"method"`
	EmiPlan     *EmiPlan      `json:"emiPlan,omitempty"`
	HalfPayment bool          `json:"halfPayment,omitempty"`
	CardType    CardType      `json:"cardType,omitempty"`
}

// SelectEmi attaches an EMI plan, which implies a credit card and clears half payment
func (s *PaymentSelection) SelectEmi(plan EmiPlan) {
	s.EmiPlan = &plan
	s.Method = MethodCreditCard
	s.HalfPayment = false
	s.CardType = ""
}

// SelectHalfPayment switches to the half-payment path and clears any EMI plan
func (s *PaymentSelection) SelectHalfPayment(card CardType) {
	s.EmiPlan = nil
	s.HalfPayment = true
	s.CardType = card
	s.Method = card.Method()
}

// SelectMethod picks a plain method, leaving EMI and half payment off
func (s *PaymentSelection) SelectMethod(m PaymentMethod) {
	s.Method = m
	s.EmiPlan = nil
	s.HalfPayment = false
	s.CardType = ""
}

// PaymentType derives FULL, EMI or HALF_PAYMENT
func (s PaymentSelection) PaymentType() string {
	switch {
	case s.EmiPlan != nil:
		return PaymentTypeEMI
	case s.HalfPayment:
		return PaymentTypeHalf
	default:
		return PaymentTypeFull
	}
}

// EffectiveMethod folds the half-payment card brand into the method sent to the backend
func (s PaymentSelection) EffectiveMethod() PaymentMethod {
	if s.EmiPlan == nil && s.HalfPayment {
		return s.CardType.Method()
	}
	return s.Method
}

// Validate checks the selection invariants
func (s PaymentSelection) Validate() error {
	if s.EmiPlan != nil && s.HalfPayment {
		return NewValidationError("payment", "EMI and half payment cannot be combined")
	}
	if s.HalfPayment {
		if s.CardType != CardCredit && s.CardType != CardDebit {
			return NewValidationError("cardType", "choose credit or debit card for half payment")
		}
		return nil
	}
	if !s.Method.Valid() {
		return NewValidationError("method", "unsupported payment method")
	}
	if s.EmiPlan != nil && s.Method != MethodCreditCard {
		return NewValidationError("method", "EMI is only available on credit cards")
	}
	return nil
}

func (c CardType) Method() PaymentMethod {
	if c == CardDebit {
		return MethodDebitCard
	}
	return MethodCreditCard
}
