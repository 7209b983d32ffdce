package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ssservicios/s3pay/internal/adapters/directory"
	"github.com/ssservicios/s3pay/internal/app"
	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/logging"
)

const defaultBaseURL = "https://api.anatod.ar/api"

func lookupCmd() *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "lookup <dni>",
		Short: "Look up the available balance of a customer",
		Long: `Resolve a DNI/CUIT against the customer directory and print the name,
available balance, plan and delinquency of the matching customer.

Nothing is recorded in the audit trail. The API key is read from DIRECTORY_API_KEY.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey := os.Getenv("DIRECTORY_API_KEY")
			if apiKey == "" {
				return errors.New("DIRECTORY_API_KEY is not set")
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			ctx := logging.AddToContext(cmd.Context(), logger)

			aria := directory.NewAria(&http.Client{Timeout: 2 * timeout}, baseURL, apiKey)
			lookupBalance := app.BuildLookupBalance(
				app.BuildResolveCustomer(aria, timeout),
				func(ctx context.Context, visit domain.QueryVisit) {},
			)

			lookup, err := lookupBalance(ctx, args[0])
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}

			return printLookup(cmd.OutOrStdout(), lookup)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", defaultBaseURL, "base URL of the customer directory API")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "timeout for each directory call")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log directory calls to stderr")

	return cmd
}

func printLookup(w io.Writer, lookup domain.BalanceLookup) error {
	status := "ACTIVO"
	if lookup.Status == domain.BalanceDeclined {
		status = fmt.Sprintf("EN MORA (%d meses)", lookup.Customer.MonthsPastDue)
	}

	_, err := fmt.Fprintf(
		w,
		"DNI:     %s\nNombre:  %s\nEmail:   %s\nSaldo:   %.2f\nPlan:    %s\nEstado:  %s\n",
		lookup.Identifier,
		lookup.Customer.FullName(),
		lookup.Customer.Email,
		lookup.Customer.FinancingAmount,
		lookup.Tier.Plan,
		status,
	)
	return err
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := lookupCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
