package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cignalottu/authcore"
	"github.com/cignalottu/authcore/password"
	"github.com/cignalottu/authcore/store/redisstore"
)

const userPassword = "L0adtest-pass"

type user struct {
	email   string
	access  string
	refresh string
}

func main() {
	var (
		users       = flag.Int("users", 2000, "number of identities to register")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		loginOps    = flag.Int("login-ops", 2000, "operations in the login phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "authcore-loadtest", "redis key prefix")
		encoding    = flag.String("encoding", string(redisstore.EncodingBinary), "record encoding: binary or msgpack")
		bcryptCost  = flag.Int("bcrypt-cost", 4, "bcrypt cost for registered users")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *loginOps <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops and login-ops must be > 0")
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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := redisstore.New(client,
		redisstore.WithPrefix(*prefix),
		redisstore.WithEncoding(redisstore.Encoding(*encoding)),
	)

	cfg := authcore.DefaultConfig()
	cfg.Token.Secret = make([]byte, 32)
	if _, err := rand.Read(cfg.Token.Secret); err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}
	cfg.Password = password.Config{Algorithm: password.AlgorithmBcrypt, BcryptCost: *bcryptCost}
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := authcore.New().WithConfig(cfg).WithIdentityStore(store).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("registering %d users...\n", *users)
	startSeed := time.Now()
	seeded := make([]user, *users)
	registerStats := runPhase(*users, *concurrency, func(_ *mrand.Rand, i int) error {
		email := fmt.Sprintf("user-%d@loadtest.local", i)
		res, err := engine.Register(ctx, authcore.RegisterRequest{
			Email:     email,
			Password:  userPassword,
			FirstName: "Load",
			LastName:  "Test",
		})
		if err != nil {
			return err
		}
		seeded[i] = user{email: email, access: res.AccessToken, refresh: res.RefreshToken}
		return nil
	})
	if registerStats.failures > 0 {
		fmt.Fprintf(os.Stderr, "%d registrations failed\n", registerStats.failures)
		os.Exit(1)
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := engine.Authenticate(ctx, seeded[r.Intn(len(seeded))].access)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := engine.Refresh(ctx, seeded[r.Intn(len(seeded))].refresh)
		return err
	})
	loginStats := runPhase(*loginOps, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := engine.Login(ctx, seeded[r.Intn(len(seeded))].email, userPassword)
		return err
	})

	fmt.Println("---- results ----")
	printStats("register", registerStats)
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
	printStats("login", loginStats)
}

// runPhase executes op ops times across concurrency workers and records the
// latency of every call.
func runPhase(ops, concurrency int, op func(r *mrand.Rand, i int) error) phaseStats {
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
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
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
		return phaseStats{total: total, failures: failures}
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
