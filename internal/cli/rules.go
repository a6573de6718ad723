package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-offers/internal/pricing"
)

// NewRulesCommand creates the rules command, which prints a rule set after
// validating it.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate and print the built-in or a file-supplied rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var basket Basket
			if file != "" {
				b, err := ReadBasketFile(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				basket = b
			}
			rules, err := basket.EngineRules()
			if err != nil {
				return err
			}
			if err := pricing.ValidateRules(rules); err != nil {
				return err
			}
			entries := toRuleEntries(rules)
			if rootOpts.Format != "text" {
				return writeStructured(cmd.OutOrStdout(), rootOpts.Format, map[string]any{"rules": entries})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tITEM\tFIRES WHEN\tEFFECT")
			for _, s := range entries {
				effect := s.Effect
				if s.Factor != "" {
					effect += " " + s.Factor
				}
				fmt.Fprintf(tw, "%s\t%s\tcount %s %d\t%s\n", s.Name, s.ItemCode, s.Operator, s.Threshold, effect)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a rules list")
	return cmd
}

func toRuleEntries(rules []pricing.Rule) []RuleEntry {
	out := make([]RuleEntry, 0, len(rules))
	for _, r := range rules {
		s := RuleEntry{
			Name:        r.Name,
			Description: r.Description,
			ItemCode:    r.ItemCode,
			Operator:    string(r.FiringOperator),
			Threshold:   r.FiringThreshold,
			Effect:      string(r.EffectType),
		}
		if r.EffectType == pricing.EffectUpdatePrices {
			s.Factor = r.EffectFactor.String()
		}
		out = append(out, s)
	}
	return out
}
