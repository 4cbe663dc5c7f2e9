package authcore

import (
	"context"
	"testing"

	"github.com/cignalottu/authcore/password"
	"github.com/cignalottu/authcore/store/memory"
)

func newBenchmarkEngine(b *testing.B) (*Engine, *AuthResult) {
	b.Helper()
	cfg := validConfig()
	cfg.Password = password.Config{Algorithm: password.AlgorithmBcrypt, BcryptCost: 4}
	engine, err := New().WithConfig(cfg).WithIdentityStore(memory.New()).Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	res, err := engine.Register(context.Background(), RegisterRequest{Email: "bench@test.it", Password: "Passw0rd"})
	if err != nil {
		b.Fatalf("register: %v", err)
	}
	return engine, res
}

func BenchmarkAuthenticate(b *testing.B) {
	engine, res := newBenchmarkEngine(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(context.Background(), res.AccessToken); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	engine, res := newBenchmarkEngine(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Refresh(context.Background(), res.RefreshToken); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}
