package core

import (
	"os"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	origEnv := os.Getenv("ENV")
	defer func() { _ = os.Setenv("ENV", origEnv) }()

	t.Run("TEST env", func(t *testing.T) {
		_ = os.Setenv("ENV", "TEST")
		conf := NewConfig()

		if !conf.TestMode {
			t.Error("NewConfig() TestMode = false, want true")
		}
		if conf.Env != "TEST" {
			t.Errorf("NewConfig() Env = %q, want %q", conf.Env, "TEST")
		}
		if conf.Debug {
			t.Error("NewConfig() Debug = true, want false")
		}
		if conf.AppName != "Darasa" {
			t.Errorf("NewConfig() AppName = %q, want %q", conf.AppName, "Darasa")
		}
		if conf.Server.Host != "0.0.0.0:8000" {
			t.Errorf("NewConfig() Server.Host = %q, want %q", conf.Server.Host, "0.0.0.0:8000")
		}
		if conf.Server.ShutdownTimeout != 5*time.Second {
			t.Errorf("NewConfig() Server.ShutdownTimeout = %v, want %v", conf.Server.ShutdownTimeout, 5*time.Second)
		}
		if conf.Database.Name != "darasa" {
			t.Errorf("NewConfig() Database.Name = %q, want %q", conf.Database.Name, "darasa")
		}
		if got := conf.Database.Address(); got != "localhost:5432" {
			t.Errorf("NewConfig() Database.Address() = %q, want %q", got, "localhost:5432")
		}
		if conf.WorkDir == "" {
			t.Error("NewConfig() WorkDir is empty")
		}
	})

	t.Run("default env is DEV", func(t *testing.T) {
		_ = os.Setenv("ENV", "")
		conf := NewConfig()

		if conf.Env != "DEV" {
			t.Errorf("NewConfig() Env = %q, want %q", conf.Env, "DEV")
		}
		if !conf.Debug {
			t.Error("NewConfig() Debug = false, want true")
		}
		if conf.TestMode {
			t.Error("NewConfig() TestMode = true, want false")
		}
	})
}
