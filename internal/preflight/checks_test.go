package preflight

import (
	"context"
	"errors"
	"testing"

	"vaultrag/internal/clearance"
	"vaultrag/internal/config"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(_ context.Context) error {
	return p.err
}

func baseConfig() *config.Config {
	return &config.Config{
		Environment:     "development",
		KnowledgeBaseID: "KB123",
		JWTSecret:       "secret",
		SNSTopicARN:     "arn:topic",
	}
}

func TestRunAllPassesWithHealthyDependencies(t *testing.T) {
	checker := NewChecker(baseConfig(), clearance.DefaultTable(), &stubPinger{}, &stubPinger{})

	results := checker.RunAll()
	if HasFailures(results) {
		t.Fatalf("unexpected failures: %+v", results)
	}
}

func TestMissingKnowledgeBaseIDFails(t *testing.T) {
	cfg := baseConfig()
	cfg.KnowledgeBaseID = ""
	checker := NewChecker(cfg, clearance.DefaultTable(), &stubPinger{}, &stubPinger{})

	if !HasFailures(checker.RunAll()) {
		t.Fatal("missing knowledge base ID should fail preflight")
	}
}

func TestMissingJWTSecretFailsOnlyInProduction(t *testing.T) {
	cfg := baseConfig()
	cfg.JWTSecret = ""
	checker := NewChecker(cfg, clearance.DefaultTable(), &stubPinger{}, &stubPinger{})
	if HasFailures(checker.RunAll()) {
		t.Fatal("missing JWT secret should only warn in development")
	}

	cfg.Environment = "production"
	checker = NewChecker(cfg, clearance.DefaultTable(), &stubPinger{}, &stubPinger{})
	if !HasFailures(checker.RunAll()) {
		t.Fatal("missing JWT secret should fail in production")
	}
}

func TestUnreachableMongoFails(t *testing.T) {
	mongo := &stubPinger{err: errors.New("connection refused")}
	checker := NewChecker(baseConfig(), clearance.DefaultTable(), mongo, &stubPinger{})

	if !HasFailures(checker.RunAll()) {
		t.Fatal("unreachable MongoDB should fail preflight")
	}
}

func TestUnreachableRedisOnlyWarns(t *testing.T) {
	redis := &stubPinger{err: errors.New("connection refused")}
	checker := NewChecker(baseConfig(), clearance.DefaultTable(), &stubPinger{}, redis)

	if HasFailures(checker.RunAll()) {
		t.Fatal("unreachable Redis should degrade to a warning, not fail startup")
	}
}
