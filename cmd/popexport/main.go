// popexport writes population TSV exports from the data portal to disk.
//
// Usage:
//
//	popexport data-collections "1000 Genomes on GRCh38" HGDP --out ./exports --parallel 4
//	popexport search --filename european --query '{"term":{"superpopulation.code":"EUR"}}'
//
// Portal settings come from config/<ENV>.yaml, as for the facade server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
