package claim

import (
	"fmt"
	"math"
)

// Estimate is the bounded monetary payout record. Amount never exceeds the
// insured amount.
type Estimate struct {
	Amount float64 `json:"amount" bson:"amount"`
}

// InvalidInputError marks a contract breach by the caller: non-positive
// insured amount or damage percent outside [0, 100]. The pipeline guards its
// own inputs, so hitting this from the orchestrator is a bug.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid claim input: " + e.Reason
}

// Payout curve calibration: no payout below the deductible, then linear up to
// the maximum payout ratio at total loss.
const (
	deductiblePercent = 5.0
	maxPayoutRatio    = 0.9
)

// PayoutRatio maps damage percent to the insured-amount fraction paid out.
// Monotonically non-decreasing, 0 at 0, at most maxPayoutRatio at 100.
func PayoutRatio(damagePercent float64) float64 {
	if damagePercent <= deductiblePercent {
		return 0
	}
	return (damagePercent - deductiblePercent) / (100 - deductiblePercent) * maxPayoutRatio
}

// EstimateClaim derives the payout for a damage assessment. The result is
// clamped to [0, insuredAmount] regardless of the curve shape.
func EstimateClaim(insuredAmount, damagePercent float64) (Estimate, error) {
	if insuredAmount <= 0 {
		return Estimate{}, &InvalidInputError{Reason: fmt.Sprintf("insured amount %g must be positive", insuredAmount)}
	}
	if damagePercent < 0 || damagePercent > 100 {
		return Estimate{}, &InvalidInputError{Reason: fmt.Sprintf("damage percent %g must be within [0,100]", damagePercent)}
	}
	amount := insuredAmount * PayoutRatio(damagePercent)
	amount = math.Min(insuredAmount, math.Max(0, amount))
	return Estimate{Amount: amount}, nil
}
