package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "judge_mirror")
	t.Setenv("DB_SSLMODE", "disable")
	t.Setenv("JUDGE_API_TIMEOUT_SECONDS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JUDGE_API_MIN_INTERVAL_MS", "250")
	t.Setenv("JUDGE_API_MAX_ATTEMPTS", "not-a-number")

	c := FromEnv()

	if c.DBConnStr != "host=db port=5432 user=postgres password=secret dbname=judge_mirror sslmode=disable" {
		t.Errorf("DBConnStr = %q", c.DBConnStr)
	}
	if c.JudgeAPIMinInterval != 250*time.Millisecond {
		t.Errorf("JudgeAPIMinInterval = %v, want 250ms", c.JudgeAPIMinInterval)
	}
	if c.JudgeAPIMaxAttempts != 5 {
		t.Errorf("JudgeAPIMaxAttempts = %d, want fallback 5", c.JudgeAPIMaxAttempts)
	}
	if c.JudgeAPITimeout != 30*time.Second {
		t.Errorf("JudgeAPITimeout = %v, want 30s", c.JudgeAPITimeout)
	}
	if c.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", c.RedisAddr)
	}
}
