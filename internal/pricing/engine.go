package pricing

import "github.com/shopspring/decimal"

// Engine applies offer rules to carts. The zero value is ready to use and holds no state,
// so one Engine can serve concurrent calls for different carts.
type Engine struct{}

type line struct {
	idx  int
	item Item
}

// Apply resolves cartID in the snapshot and prices it with rules.
func (e Engine) Apply(snapshot Snapshot, cartID string, rules []Rule) (Result, error) {
	cart, ok := snapshot.Carts[cartID]
	if !ok || cart == nil {
		return Result{}, &CartNotFoundError{CartID: cartID}
	}
	return e.ApplyCart(cart, rules)
}

// ApplyCart prices the cart with rules, in declaration order, and writes the rounded
// total onto cart.TotalPrice. Each cart line is claimed by at most one rule: the first
// rule that fires over it. Nothing is written when an error is returned.
func (e Engine) ApplyCart(cart *Cart, rules []Rule) (Result, error) {
	if cart == nil {
		return Result{}, &CartNotFoundError{}
	}
	if err := ValidateRules(rules); err != nil {
		return Result{}, err
	}

	lines := make([]line, len(cart.Lines))
	subtotal := decimal.Zero
	for i, cl := range cart.Lines {
		lines[i] = line{idx: i, item: cl.Item}
		subtotal = subtotal.Add(cl.Item.UnitPrice)
	}

	claimed := make([]bool, len(lines))
	offers := decimal.Zero
	var applied []AppliedOffer
	for _, rule := range rules {
		code := rule.ItemCode
		matched := Matching(PartitionBy(lines, func(l line) bool {
			return !claimed[l.idx] && l.item.Code == code
		}))
		if len(matched) == 0 {
			continue
		}
		fires, err := Evaluate(len(matched), rule.FiringOperator, rule.FiringThreshold)
		if err != nil {
			return Result{}, withRuleID(err, rule.ID)
		}
		if !fires {
			continue
		}
		items := make([]Item, len(matched))
		for i, l := range matched {
			items[i] = l.item
		}
		price, err := Resolve(items, rule.EffectType, rule.EffectFactor)
		if err != nil {
			return Result{}, withRuleID(err, rule.ID)
		}
		offers = offers.Add(price)
		for _, l := range matched {
			claimed[l.idx] = true
		}
		applied = append(applied, AppliedOffer{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			ItemCode: code,
			Count:    len(matched),
			Price:    price,
		})
	}

	unclaimed := decimal.Zero
	for _, l := range lines {
		if !claimed[l.idx] {
			unclaimed = unclaimed.Add(l.item.UnitPrice)
		}
	}

	total := RoundHalfUp(offers.Add(unclaimed), 2)
	cart.TotalPrice = total
	return Result{
		Subtotal: RoundHalfUp(subtotal, 2),
		Discount: RoundHalfUp(subtotal.Sub(total), 2),
		Total:    total,
		Applied:  applied,
	}, nil
}

// RoundHalfUp rounds d to places decimals with halves going towards positive
// infinity. decimal.Round sends negative halves away from zero instead, which
// differs once an effect factor above 1 drives a total below zero.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	half := decimal.New(5, -(places + 1))
	return d.Add(half).RoundFloor(places)
}

// ValidateRules rejects the rule set on the first unsupported operator or effect.
func ValidateRules(rules []Rule) error {
	for _, r := range rules {
		if !r.FiringOperator.Valid() {
			return &InvalidRuleError{RuleID: r.ID, Operator: r.FiringOperator}
		}
		if !r.EffectType.Valid() {
			return &UnknownEffectError{RuleID: r.ID, Effect: r.EffectType}
		}
	}
	return nil
}

func withRuleID(err error, ruleID string) error {
	switch e := err.(type) {
	case *InvalidRuleError:
		e.RuleID = ruleID
	case *UnknownEffectError:
		e.RuleID = ruleID
	}
	return err
}
