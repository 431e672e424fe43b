// Command aethercask-bench runs a small suite of throughput and integrity
// checks directly against the embedded engine.Store, bypassing the network
// layer entirely — useful for isolating storage-engine performance from
// wire-protocol overhead.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/jassi-singh/aethercask/internal/config"
	"github.com/jassi-singh/aethercask/internal/engine"
	flag "github.com/spf13/pflag"
)

func main() {
	dataDir := flag.StringP("data-dir", "d", "", "store directory (default: temp dir, discarded after run)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	dir := *dataDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "aethercask-bench-*")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	cfg := config.Default(dir)

	switch flag.Arg(0) {
	case "100k-write":
		run100kWrite(cfg)
	case "overlapping":
		runOverlappingKey(cfg)
	case "integrity":
		runIntegrity(cfg)
	default:
		fmt.Printf("Unknown test: %s\n", flag.Arg(0))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: aethercask-bench [-d data-dir] <test-name>")
	fmt.Println("\nAvailable tests:")
	fmt.Println("  100k-write  - write 100,000 unique keys and measure throughput")
	fmt.Println("  overlapping - overwrite one key and confirm the latest value is returned")
	fmt.Println("  integrity   - write 100k keys, then randomly read back 1,000 to verify integrity")
}

func run100kWrite(cfg *config.Config) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("100k Write Test (Speed & Integrity)")
	fmt.Println(strings.Repeat("=", 60))

	store, err := engine.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	const totalKeys = 100_000
	start := time.Now()
	errs := 0

	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)
		if err := store.Set(key, []byte(value)); err != nil {
			errs++
			if errs <= 10 {
				fmt.Printf("ERROR: failed to set %s: %v\n", key, err)
			}
		}
		if (i+1)%10_000 == 0 {
			elapsed := time.Since(start)
			fmt.Printf("progress: %d/%d keys written (%.2f keys/sec)\n", i+1, totalKeys, float64(i+1)/elapsed.Seconds())
		}
	}

	elapsed := time.Since(start)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("total time: %v\n", elapsed)
	fmt.Printf("write rate: %.2f keys/second\n", float64(totalKeys)/elapsed.Seconds())
	fmt.Printf("errors: %d\n", errs)

	if errs > 0 {
		fmt.Printf("FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}
	fmt.Println("PASSED: all 100,000 keys written successfully")
}

func runOverlappingKey(cfg *config.Config) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Overlapping Key Test")
	fmt.Println(strings.Repeat("=", 60))

	store, err := engine.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	key, valueA, valueB := "key_1", "value_A", "value_B"

	fmt.Printf("step 1: set %s = %q\n", key, valueA)
	if err := store.Set(key, []byte(valueA)); err != nil {
		fmt.Fprintf(os.Stderr, "set failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("step 2: set %s = %q (overwrite)\n", key, valueB)
	if err := store.Set(key, []byte(valueB)); err != nil {
		fmt.Fprintf(os.Stderr, "set failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("step 3: get %s\n", key)
	value, found, err := store.Get(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get failed: %v\n", err)
		os.Exit(1)
	}
	if !found || string(value) != valueB {
		fmt.Printf("FAILED: expected %q, got found=%v value=%q\n", valueB, found, value)
		os.Exit(1)
	}

	fmt.Println("PASSED: overwritten value correctly returned")
}

func runIntegrity(cfg *config.Config) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Integrity Test (Read-Back)")
	fmt.Println(strings.Repeat("=", 60))

	store, err := engine.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	const totalKeys = 100_000
	fmt.Printf("step 1: writing %d keys...\n", totalKeys)
	start := time.Now()
	for i := 0; i < totalKeys; i++ {
		key := fmt.Sprintf("key_%d", i)
		value := fmt.Sprintf("value_%d", i)
		if err := store.Set(key, []byte(value)); err != nil {
			fmt.Fprintf(os.Stderr, "set %s failed: %v\n", key, err)
			os.Exit(1)
		}
	}
	fmt.Printf("  write completed in %v\n", time.Since(start))

	fmt.Println("step 2: randomly reading 1,000 keys to verify integrity...")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	readStart := time.Now()
	errs := 0

	for i := 0; i < 1000; i++ {
		idx := rng.Intn(totalKeys)
		key := fmt.Sprintf("key_%d", idx)
		want := fmt.Sprintf("value_%d", idx)

		value, found, err := store.Get(key)
		if err != nil || !found {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: get %s failed: found=%v err=%v\n", key, found, err)
			}
			continue
		}
		if string(value) != want {
			errs++
			if errs <= 10 {
				fmt.Printf("  ERROR: %s expected %q, got %q\n", key, want, value)
			}
		}
	}

	fmt.Printf("  read completed in %v (%.2f keys/sec)\n", time.Since(readStart), 1000.0/time.Since(readStart).Seconds())
	fmt.Printf("errors: %d\n", errs)

	if errs > 0 {
		fmt.Printf("FAILED: %d errors occurred\n", errs)
		os.Exit(1)
	}
	fmt.Println("PASSED: all 1,000 random reads returned correct values")
}
