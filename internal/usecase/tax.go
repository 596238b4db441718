package usecase

import (
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
)

// countryTaxRates maps customer countries to the VAT rate used when
// normalizing listed prices. Unknown countries carry no tax.
var countryTaxRates = map[string]float64{
	"AT": 0.20,
	"BE": 0.21,
	"CH": 0.081,
	"DE": 0.19,
	"DK": 0.25,
	"ES": 0.21,
	"FI": 0.24,
	"FR": 0.20,
	"GB": 0.20,
	"IE": 0.23,
	"IT": 0.22,
	"NL": 0.21,
	"PL": 0.23,
	"PT": 0.23,
	"SE": 0.25,
}

// exclusiveDefaultCurrencies lists the settlement currencies whose
// catalog prices were created tax-exclusive without an explicit tax
// behavior. This is a catalog-specific assumption about how those
// prices were entered, not a general currency rule.
var exclusiveDefaultCurrencies = map[stripe.Currency]bool{
	stripe.CurrencyUSD: true,
	stripe.CurrencyGBP: true,
}

func taxRateForCountry(country string) float64 {
	return countryTaxRates[country]
}

// effectiveTaxBehavior resolves a price's tax behavior, defaulting
// unspecified to inclusive except for the designated settlement
// currencies.
func effectiveTaxBehavior(price *stripe.Price) stripe.PriceTaxBehavior {
	switch price.TaxBehavior {
	case stripe.PriceTaxBehaviorInclusive, stripe.PriceTaxBehaviorExclusive:
		return price.TaxBehavior
	}

	if exclusiveDefaultCurrencies[price.Currency] {
		return stripe.PriceTaxBehaviorExclusive
	}
	return stripe.PriceTaxBehaviorInclusive
}

// normalizeTax splits a listed amount (minor units) into gross and net
// under the given rate and behavior:
// inclusive: net = gross / (1 + rate); exclusive: gross = net * (1 + rate).
func normalizeTax(amount decimal.Decimal, rate float64, behavior stripe.PriceTaxBehavior) (gross, net decimal.Decimal) {
	factor := decimal.NewFromFloat(1 + rate)
	if behavior == stripe.PriceTaxBehaviorExclusive {
		return amount.Mul(factor), amount
	}
	return amount, amount.Div(factor)
}
