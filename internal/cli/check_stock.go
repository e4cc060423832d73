// internal/cli/check_stock.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

func newCheckStockCommand(app *App) *cobra.Command {
	var clamp bool

	cmd := &cobra.Command{
		Use:   "check-stock",
		Short: "List open carts asking for more than is in stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, closeDB, err := app.session()
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			carts := cart.NewService(db, cfg.Cart, metrics.New(nil), app.Log.WithField("service", "cart"))
			ids, err := carts.CartsWithUnavailableVariants(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "all carts are within stock")
				return nil
			}

			for _, id := range ids {
				if !clamp {
					fmt.Fprintf(out, "cart %d exceeds available stock\n", id)
					continue
				}
				if err := carts.RemoveUnavailableVariants(ctx, id); err != nil {
					return fmt.Errorf("failed to clamp cart %d: %w", id, err)
				}
				fmt.Fprintf(out, "cart %d clamped to available stock\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clamp, "clamp", false, "reduce offending lines to the available quantity")
	return cmd
}
