// Command otpauth-loadtest measures the verification ledger under contention
// and checks that every challenge is consumed at most once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/educatebharat/otpauth/internal/stores"
)

func main() {
	var (
		emails      = flag.Int("emails", 10000, "number of distinct emails")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "issue operations")
		racers      = flag.Int("racers", 8, "concurrent consumers per challenge in the race phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "otp-load", "ledger key prefix")
	)
	flag.Parse()

	if *emails <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "emails, concurrency, ops and racers must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	ledger := stores.NewVerificationLedger(client, *prefix)

	issueStats := runIssuePhase(ctx, ledger, *emails, *ops, *concurrency)
	race := runRacePhase(ctx, ledger, *emails, *racers, *concurrency)

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("consume", race.stats)
	fmt.Printf("consume: challenges=%d winners=%d double_consumed=%d\n", race.challenges, race.winners, race.doubles)

	if race.doubles > 0 {
		os.Exit(1)
	}
}

func emailFor(i int) string {
	return fmt.Sprintf("load-%d@example.com", i)
}

func challengeFor(email string, i int) *stores.Challenge {
	now := time.Now()
	return &stores.Challenge{
		Email:     email,
		CodeHash:  fmt.Sprintf("$argon2id$v=19$m=8,t=1,p=1$c2FsdA$%08d", i),
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

// runIssuePhase supersedes challenges for random emails.
func runIssuePhase(ctx context.Context, ledger *stores.VerificationLedger, emails, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := challengeFor(emailFor(r.Intn(emails)), i)
				t0 := time.Now()
				err := ledger.Put(ctx, c)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type raceResult struct {
	stats      phaseStats
	challenges int
	winners    int64
	doubles    int64
}

// runRacePhase issues one challenge per email and lets racers consumers
// fight over each. Exactly one consumer per email may win.
func runRacePhase(ctx context.Context, ledger *stores.VerificationLedger, emails, racers, concurrency int) raceResult {
	for i := 0; i < emails; i++ {
		if err := ledger.Put(ctx, challengeFor(emailFor(i), i)); err != nil {
			fmt.Fprintf(os.Stderr, "put failed: %v\n", err)
			os.Exit(1)
		}
	}

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		winners   int64
		doubles   int64
		latencies = make([]time.Duration, 0, emails*racers)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= emails {
					return
				}

				var (
					inner sync.WaitGroup
					won   int64
				)
				for k := 0; k < racers; k++ {
					inner.Add(1)
					go func() {
						defer inner.Done()
						t0 := time.Now()
						c, err := ledger.Get(ctx, emailFor(i))
						if err == nil {
							err = ledger.Consume(ctx, c)
						}
						d := time.Since(t0)

						switch {
						case err == nil:
							atomic.AddInt64(&won, 1)
						case !errors.Is(err, stores.ErrChallengeNotFound):
							atomic.AddInt64(&failures, 1)
						}
						mu.Lock()
						latencies = append(latencies, d)
						mu.Unlock()
					}()
				}
				inner.Wait()

				if won > 0 {
					atomic.AddInt64(&winners, 1)
				}
				if won > 1 {
					atomic.AddInt64(&doubles, 1)
				}
			}
		}()
	}
	wg.Wait()

	return raceResult{
		stats:      computeStats(time.Since(start), latencies, failures),
		challenges: emails,
		winners:    winners,
		doubles:    doubles,
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
