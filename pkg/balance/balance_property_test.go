//go:build property
// +build property

package balance

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// TestReservationInvariant checks that any sequence of reserve calls with
// matching release/deduct settlements keeps available = balance - reserved
// non-negative for a customer.
func TestReservationInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("available never goes negative", prop.ForAll(
		func(seed int64, ops []int) bool {
			m := NewManager(nil)
			m.SetBalance("c_prop", decimal.NewFromInt(seed%10000).Abs())

			var holds []decimal.Decimal
			for _, op := range ops {
				switch op % 3 {
				case 0:
					amount := decimal.NewFromInt(int64(op%500) + 1)
					if m.Reserve("c_prop", amount) {
						holds = append(holds, amount)
					}
				case 1:
					if len(holds) > 0 {
						m.Release("c_prop", holds[len(holds)-1])
						holds = holds[:len(holds)-1]
					}
				case 2:
					if len(holds) > 0 {
						m.Deduct("c_prop", holds[len(holds)-1])
						holds = holds[:len(holds)-1]
					}
				}
				if m.AvailableBalance("c_prop").IsNegative() {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.SliceOf(gen.IntRange(0, 1500)),
	))

	properties.TestingRun(t)
}
