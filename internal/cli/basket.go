package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-offers/internal/pricing"
	"github.com/noah-isme/backend-offers/internal/seed"
)

// Basket is the YAML document accepted by `offerctl price -f`. Catalog and
// Rules default to the built-in challenge data when omitted.
type Basket struct {
	Items   []string       `yaml:"items"`
	Catalog []CatalogEntry `yaml:"catalog,omitempty"`
	Rules   []RuleEntry    `yaml:"rules,omitempty"`
}

// CatalogEntry is one product in a basket file.
type CatalogEntry struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// RuleEntry is one offer in a basket file.
type RuleEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ItemCode    string `json:"item_code" yaml:"item_code"`
	Operator    string `json:"operator" yaml:"operator"`
	Threshold   int    `json:"threshold" yaml:"threshold"`
	Effect      string `json:"effect" yaml:"effect"`
	Factor      string `json:"factor,omitempty" yaml:"factor,omitempty"`
}

// ReadBasket decodes a basket document. Unknown keys are rejected.
func ReadBasket(r io.Reader) (Basket, error) {
	var b Basket
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return Basket{}, errors.New("basket: empty document")
		}
		return Basket{}, fmt.Errorf("basket: %w", err)
	}
	return b, nil
}

// ReadBasketFile reads a basket from path, or from stdin when path is "-".
func ReadBasketFile(path string, stdin io.Reader) (Basket, error) {
	if path == "-" {
		return ReadBasket(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return Basket{}, err
	}
	defer f.Close()
	return ReadBasket(f)
}

// EngineCatalog returns the basket catalog indexed by code.
func (b Basket) EngineCatalog() (map[string]pricing.Item, error) {
	if len(b.Catalog) == 0 {
		return seed.EngineCatalog(), nil
	}
	out := make(map[string]pricing.Item, len(b.Catalog))
	for i, c := range b.Catalog {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" {
			return nil, fmt.Errorf("catalog[%d]: code is required", i)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(c.Price))
		if err != nil {
			return nil, fmt.Errorf("catalog[%d]: price %q: %w", i, c.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("catalog[%d]: price must not be negative", i)
		}
		out[code] = pricing.Item{ID: code, Code: code, Name: c.Name, UnitPrice: price}
	}
	return out, nil
}

// EngineRules returns the basket rules in file order.
func (b Basket) EngineRules() ([]pricing.Rule, error) {
	if len(b.Rules) == 0 {
		return seed.EngineRules(), nil
	}
	out := make([]pricing.Rule, 0, len(b.Rules))
	for i, r := range b.Rules {
		rule := pricing.Rule{
			ID:              r.Name,
			Name:            r.Name,
			Description:     r.Description,
			ItemCode:        strings.ToUpper(strings.TrimSpace(r.ItemCode)),
			FiringOperator:  pricing.Comparator(strings.TrimSpace(r.Operator)),
			FiringThreshold: r.Threshold,
			EffectType:      pricing.EffectType(strings.TrimSpace(r.Effect)),
		}
		if rule.ID == "" {
			rule.ID = "rule-" + strconv.Itoa(i)
		}
		if f := strings.TrimSpace(r.Factor); f != "" {
			factor, err := decimal.NewFromString(f)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: factor %q: %w", i, r.Factor, err)
			}
			rule.EffectFactor = factor
		}
		out = append(out, rule)
	}
	return out, nil
}

// Cart builds the engine cart for the basket items. Codes are matched
// case-insensitively; an unknown code is an error.
func (b Basket) Cart(catalog map[string]pricing.Item) (*pricing.Cart, error) {
	cart := &pricing.Cart{ID: "basket", Lines: make([]pricing.CartLine, 0, len(b.Items))}
	for i, code := range b.Items {
		it, ok := catalog[strings.ToUpper(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("items[%d]: unknown item code %q", i, code)
		}
		cart.Lines = append(cart.Lines, pricing.CartLine{ID: strconv.Itoa(i), Item: it})
	}
	return cart, nil
}

// Price runs the engine over the basket.
func (b Basket) Price() (pricing.Result, error) {
	catalog, err := b.EngineCatalog()
	if err != nil {
		return pricing.Result{}, err
	}
	rules, err := b.EngineRules()
	if err != nil {
		return pricing.Result{}, err
	}
	cart, err := b.Cart(catalog)
	if err != nil {
		return pricing.Result{}, err
	}
	return pricing.Engine{}.ApplyCart(cart, rules)
}
