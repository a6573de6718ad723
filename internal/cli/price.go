package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-offers/internal/pricing"
)

// PriceReport is the structured output of `offerctl price`.
type PriceReport struct {
	Items    []string      `json:"items" yaml:"items"`
	Subtotal string        `json:"subtotal" yaml:"subtotal"`
	Discount string        `json:"discount" yaml:"discount"`
	Total    string        `json:"total" yaml:"total"`
	Offers   []OfferReport `json:"offers,omitempty" yaml:"offers,omitempty"`
}

// OfferReport describes one fired offer.
type OfferReport struct {
	Rule     string `json:"rule" yaml:"rule"`
	ItemCode string `json:"item_code" yaml:"item_code"`
	Count    int    `json:"count" yaml:"count"`
	Price    string `json:"price" yaml:"price"`
}

func newPriceReport(items []string, res pricing.Result) PriceReport {
	out := PriceReport{
		Items:    items,
		Subtotal: res.Subtotal.StringFixed(2),
		Discount: res.Discount.StringFixed(2),
		Total:    res.Total.StringFixed(2),
	}
	for _, a := range res.Applied {
		out.Offers = append(out.Offers, OfferReport{
			Rule:     a.RuleName,
			ItemCode: a.ItemCode,
			Count:    a.Count,
			Price:    a.Price.StringFixed(2),
		})
	}
	return out
}

// NewPriceCommand creates the price command.
func NewPriceCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "price [CODE...]",
		Short: "Price a basket offline with the built-in or a file-supplied rule set",
		Long: `Price a basket without a database.

Items come from positional item codes or from a YAML basket file (-f).
A basket file may also carry its own catalog and rules; otherwise the
built-in challenge catalog and offers are used.`,
		Example: `  offerctl price GR1 SR1 GR1 GR1 CF1
  offerctl price -f basket.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var basket Basket
			switch {
			case file != "" && len(args) > 0:
				return errors.New("pass item codes or --file, not both")
			case file != "":
				b, err := ReadBasketFile(file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				basket = b
			default:
				basket = Basket{Items: args}
			}
			res, err := basket.Price()
			if err != nil {
				return err
			}
			report := newPriceReport(basket.Items, res)
			if rootOpts.Format != "text" {
				return writeStructured(cmd.OutOrStdout(), rootOpts.Format, report)
			}
			return writePriceText(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML basket file, - for stdin")
	return cmd
}

func writePriceText(w io.Writer, r PriceReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, o := range r.Offers {
		fmt.Fprintf(tw, "offer\t%s\t%s x%d\t%s\n", o.Rule, o.ItemCode, o.Count, o.Price)
	}
	fmt.Fprintf(tw, "subtotal\t\t\t%s\n", r.Subtotal)
	fmt.Fprintf(tw, "discount\t\t\t%s\n", r.Discount)
	fmt.Fprintf(tw, "total\t\t\t%s\n", r.Total)
	return tw.Flush()
}
