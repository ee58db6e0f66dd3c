package llm

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPricing contains pricing per million tokens.
type ModelPricing struct {
	Input  decimal.Decimal // Per million prompt tokens
	Output decimal.Decimal // Per million completion tokens
}

// modelPricingTable is keyed by model family. Dated snapshots such as
// gpt-4o-mini-2024-07-18 resolve to their family by longest prefix.
var modelPricingTable = map[string]ModelPricing{
	"gpt-4o-mini":   {Input: decimal.NewFromFloat(0.15), Output: decimal.NewFromFloat(0.60)},
	"gpt-4o":        {Input: decimal.NewFromFloat(2.50), Output: decimal.NewFromFloat(10)},
	"gpt-4.1-nano":  {Input: decimal.NewFromFloat(0.10), Output: decimal.NewFromFloat(0.40)},
	"gpt-4.1-mini":  {Input: decimal.NewFromFloat(0.40), Output: decimal.NewFromFloat(1.60)},
	"gpt-4.1":       {Input: decimal.NewFromFloat(2), Output: decimal.NewFromFloat(8)},
	"gpt-4-turbo":   {Input: decimal.NewFromFloat(10), Output: decimal.NewFromFloat(30)},
	"gpt-3.5-turbo": {Input: decimal.NewFromFloat(0.50), Output: decimal.NewFromFloat(1.50)},
}

// families sorted longest first so "gpt-4o-mini" wins over "gpt-4o".
var families = func() []string {
	keys := make([]string, 0, len(modelPricingTable))
	for k := range modelPricingTable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

var zeroPricing = ModelPricing{}

// GetPricing returns pricing for a model, or zero pricing for unknown models.
func GetPricing(modelName string) ModelPricing {
	name := strings.ToLower(modelName)
	for _, family := range families {
		if name == family || strings.HasPrefix(name, family+"-") {
			return modelPricingTable[family]
		}
	}
	slog.Debug("unknown model for pricing", "model", modelName)
	return zeroPricing
}

var oneMillion = decimal.NewFromInt(1_000_000)

// CalculateCost calculates cost in USD for token usage.
func CalculateCost(pricing ModelPricing, usage Usage) decimal.Decimal {
	input := decimal.NewFromInt(int64(usage.PromptTokens)).Mul(pricing.Input).Div(oneMillion)
	output := decimal.NewFromInt(int64(usage.CompletionTokens)).Mul(pricing.Output).Div(oneMillion)
	return input.Add(output)
}

// EstimateCost prices usage for modelName.
func EstimateCost(modelName string, usage Usage) decimal.Decimal {
	return CalculateCost(GetPricing(modelName), usage)
}
