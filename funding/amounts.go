package funding

import (
	"math"
	"time"
)

// AmountOptions converts the USD amounts at the quoted rate and keeps those
// within the shop limits. While satoshis are still needed, amounts below the
// shortfall are dropped, except that the largest allowed amount always
// survives so the user keeps at least one choice.
func AmountOptions(quote *Quote, usd []int, needed uint64) []AmountOption {
	if quote == nil || quote.SatoshisPerUSD <= 0 {
		return nil
	}

	allowed := make([]AmountOption, 0, len(usd))
	for _, dollars := range usd {
		sats := uint64(math.Ceil(float64(dollars) * quote.SatoshisPerUSD))
		if sats < quote.MinimumSatoshis || sats > quote.MaximumSatoshis {
			continue
		}
		allowed = append(allowed, AmountOption{USD: dollars, Satoshis: sats})
	}
	if len(allowed) == 0 || needed == 0 {
		return allowed
	}

	sufficient := make([]AmountOption, 0, len(allowed))
	largest := allowed[0]
	for _, opt := range allowed {
		if opt.Satoshis > largest.Satoshis {
			largest = opt
		}
		if opt.Satoshis >= needed {
			sufficient = append(sufficient, opt)
		}
	}
	if len(sufficient) == 0 {
		return []AmountOption{largest}
	}
	return sufficient
}

// validMinutes is the whole number of minutes left on the quote
func validMinutes(quote *Quote, now time.Time) int {
	if quote.ValidUntil.IsZero() {
		return 0
	}
	minutes := int(quote.ValidUntil.Sub(now) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// expired reports whether the quote can no longer be used
func expired(quote *Quote, now time.Time) bool {
	return !quote.ValidUntil.IsZero() && !now.Before(quote.ValidUntil)
}

// subtract lowers needed by delivered, never below zero
func subtract(needed, delivered uint64) uint64 {
	if delivered >= needed {
		return 0
	}
	return needed - delivered
}
