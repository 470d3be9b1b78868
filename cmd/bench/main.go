// Command bench runs a synthetic workload against the cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/memocache/cache"
	pmet "github.com/IvanBrykalov/memocache/metrics/prom"
	"github.com/IvanBrykalov/memocache/policy"
)

func main() {
	// ---- Flags ----
	behavior := policy.DropLeastRecentlyUsed
	flag.TextVar(&behavior, "policy", behavior, "eviction behavior: fifo | lru")
	var (
		capacity = flag.Int("cap", 100_000, "cache capacity (entries)")
		ensure   = flag.Bool("ensure", false, "enforce capacity eagerly and pre-size storage")

		workers   = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration  = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct   = flag.Int("reads", 80, "read percentage [0..100]")
		loadDelay = flag.Duration("load_delay", 0, "simulated loader latency")
		failPct   = flag.Int("load_fail", 0, "loader failure percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "memocache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	var loads atomic.Uint64
	failRate := *failPct
	delay := *loadDelay
	load := func(k string) (string, error) {
		n := loads.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		if failRate > 0 && int(n%100) < failRate {
			return "", fmt.Errorf("load %s: simulated failure", k)
		}
		return "v:" + k, nil
	}
	c, err := cache.New(load, cache.Options[string, string]{
		Capacity:       *capacity,
		Behavior:       behavior,
		EnsureCapacity: *ensure,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	sc := c.Synchronized()

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		_ = sc.Set(k, "v"+strconv.Itoa(i))
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, failures, total atomic.Uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(w)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				total.Add(1)
				if int(localR.Int31n(100)) < readPctVal {
					reads.Add(1)
					k := keyByZipf()
					if sc.ContainsKey(k) {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
					if _, err := sc.GetOrAdd(k); err != nil {
						failures.Add(1)
					}
				} else {
					writes.Add(1)
					_ = sc.Set(keyByZipf(), "v"+strconv.Itoa(localR.Int()))
				}
			}
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := total.Load()
	readsN := reads.Load()
	hitsN := hits.Load()

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("policy=%s cap=%d ensure=%v workers=%d keys=%d dur=%v seed=%d\n",
		behavior, *capacity, *ensure, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writes.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%  loads=%d  load-failures=%d\n",
		hitsN, misses.Load(), hitRate, loads.Load(), failures.Load())
	fmt.Printf("Len()=%d\n", sc.Len())
}
