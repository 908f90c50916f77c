// Command fundctl reads and updates the fund workbook from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/FACorreiaa/fund-tracker/cmd/api"
	"github.com/FACorreiaa/fund-tracker/pkg/config"
)

func main() {
	_ = godotenv.Load()

	root, closeSession := newRootCmd(loadService)
	err := root.Execute()
	closeSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadService builds the same service graph the API server uses.
func loadService(ctx context.Context, logger *slog.Logger) (portfolioService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	deps, err := api.InitDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return deps.PortfolioService, deps.Cleanup, nil
}
