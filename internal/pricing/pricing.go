// Package pricing validates and formats multi-currency, multi-tier price sets.
package pricing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/GTDGit/gtd_dashboard/internal/models"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
)

// Policy is the currency configuration of a business.
type Policy struct {
	DefaultCurrency string
	Currencies      []string
}

// NewPolicy builds a Policy from a business.
func NewPolicy(b *models.Business) Policy {
	return Policy{DefaultCurrency: b.DefaultCurrency, Currencies: b.Currencies}
}

// Allows reports whether the business prices in code.
func (p Policy) Allows(code string) bool {
	if strings.EqualFold(code, p.DefaultCurrency) {
		return true
	}
	for _, c := range p.Currencies {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// ParseCurrency returns the canonical ISO-4217 code for raw.
func ParseCurrency(raw string) (string, error) {
	u, err := currency.ParseISO(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", raw, utils.ErrInvalidInput)
	}
	return u.String(), nil
}

// NormalizeCurrencies canonicalizes and de-duplicates a currency list.
func NormalizeCurrencies(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		code, err := ParseCurrency(r)
		if err != nil {
			return nil, err
		}
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Normalize upper-cases currency codes, fills empty tiers with the default
// tier and sorts by tier then currency.
func Normalize(prices models.Prices) models.Prices {
	out := make(models.Prices, len(prices))
	for i, p := range prices {
		p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
		p.Tier = strings.ToLower(strings.TrimSpace(p.Tier))
		if p.Tier == "" {
			p.Tier = models.DefaultTier
		}
		out[i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// Validate normalizes prices and checks them against the policy. Every
// currency must be a known ISO-4217 code enabled for the business, amounts
// must not be negative, each (tier, currency) pair may appear once, and at
// least one price must be in the default currency.
func Validate(prices models.Prices, policy Policy) (models.Prices, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("at least one price is required: %w", utils.ErrInvalidInput)
	}
	norm := Normalize(prices)

	seen := make(map[string]bool, len(norm))
	hasDefault := false
	for _, p := range norm {
		if _, err := ParseCurrency(p.Currency); err != nil {
			return nil, err
		}
		if !policy.Allows(p.Currency) {
			return nil, fmt.Errorf("currency %s is not enabled for this business: %w", p.Currency, utils.ErrInvalidInput)
		}
		if p.Amount < 0 {
			return nil, fmt.Errorf("price %s/%s must not be negative: %w", p.Tier, p.Currency, utils.ErrInvalidInput)
		}
		key := p.Tier + "/" + p.Currency
		if seen[key] {
			return nil, fmt.Errorf("duplicate price for %s: %w", key, utils.ErrInvalidInput)
		}
		seen[key] = true
		if strings.EqualFold(p.Currency, policy.DefaultCurrency) {
			hasDefault = true
		}
	}
	if !hasDefault {
		return nil, fmt.Errorf("a price in %s is required: %w", policy.DefaultCurrency, utils.ErrInvalidInput)
	}
	return norm, nil
}

// Quote picks the amount for tier and currency, falling back to the
// default tier in the same currency.
func Quote(prices models.Prices, tier, code string) (int64, error) {
	code = strings.ToUpper(code)
	if tier == "" {
		tier = models.DefaultTier
	}
	if amount, ok := prices.Lookup(tier, code); ok {
		return amount, nil
	}
	if amount, ok := prices.Lookup(models.DefaultTier, code); ok {
		return amount, nil
	}
	return 0, fmt.Errorf("no %s price for tier %s: %w", code, tier, utils.ErrInvalidInput)
}

var printer = message.NewPrinter(language.English)

// Format renders an amount in minor units, e.g. Format(123450, "USD") is
// "USD 1,234.50".
func Format(amount int64, code string) string {
	u, err := currency.ParseISO(code)
	if err != nil {
		return printer.Sprintf("%d %s", amount, code)
	}
	scale, _ := currency.Standard.Rounding(u)
	if scale == 0 {
		return u.String() + " " + printer.Sprintf("%d", amount)
	}
	value := float64(amount) / math.Pow10(scale)
	return u.String() + " " + printer.Sprint(number.Decimal(value, number.Scale(scale)))
}
