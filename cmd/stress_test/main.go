package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/rl1809/store-inventory/internal/app"
	"github.com/rl1809/store-inventory/internal/config"
	"github.com/rl1809/store-inventory/internal/core/domain"
)

func main() {
	cliApp := &cli.App{
		Name:  "stress_test",
		Usage: "fire concurrent adds of one SKU at a single store",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "requests", Value: 50, Usage: "number of concurrent add requests"},
			&cli.Int64Flag{Name: "user-id", Value: 1},
			&cli.StringFlag{Name: "email", Value: "stress@example.com"},
			&cli.StringFlag{Name: "sku", Value: fmt.Sprintf("stress-%d", time.Now().UnixNano())},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("stress test failed")
	}
}

func run(c *cli.Context) error {
	ctx := c.Context
	totalRequests := c.Int("requests")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.SetupLogger("warn", cfg.LogFormat)

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	owner := domain.NewOwner(c.Int64("user-id"), c.String("email"))
	if err := a.Provisioner.Provision(ctx, owner); err != nil {
		return fmt.Errorf("provision store: %w", err)
	}

	product := domain.Product{SKU: c.String("sku"), Name: "Stress Item", Category: "test", Quantity: 1, Price: 1}

	var created, conflicts, other atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			res := a.Service.AddInventory(ctx, owner, product)
			switch res.Code {
			case domain.CodeCreated:
				created.Add(1)
			case domain.CodeConflict:
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	list := a.Service.GetAllInventory(ctx, owner)
	copies := 0
	for _, p := range list.Data {
		if p.SKU == domain.NormalizeSKU(product.SKU) {
			copies++
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Backend:          %s\n", cfg.StoreBackend)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Created:          %d\n", created.Load())
	fmt.Printf("Already Exist:    %d\n", conflicts.Load())
	fmt.Printf("Other:            %d\n", other.Load())
	fmt.Printf("Stored Copies:    %d\n", copies)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if created.Load() != 1 || conflicts.Load() != int32(totalRequests-1) || copies != 1 {
		return fmt.Errorf("expected 1 created/%d conflicts/1 copy, got %d/%d/%d",
			totalRequests-1, created.Load(), conflicts.Load(), copies)
	}
	fmt.Println("PASS: exactly one add succeeded and the SKU is stored once")
	return nil
}
