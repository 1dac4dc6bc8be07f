package main

import (
	"context"
	"fmt"
	"os"

	"github.com/verdelo/carbonledger-backend/internal/app"
	"github.com/verdelo/carbonledger-backend/internal/seed"
)

// Seeds the factor catalog and the demo dataset, then exits. Refuses to
// run against a production environment.
func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Services.Seeder.Run(context.Background()); err != nil {
		a.Log.Error("Seed failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("Seed finished", "email", seed.DemoEmail)
}
