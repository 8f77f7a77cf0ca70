package env

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestConfig struct {
	Host    string        `env:"TEST_HOST" default:"localhost"`
	Port    int           `env:"TEST_PORT" default:"8080"`
	Enabled bool          `env:"TEST_ENABLED" default:"true"`
	Timeout time.Duration `env:"TEST_TIMEOUT" default:"30s"`
	Rate    float64       `env:"TEST_RATE" default:"1.5"`
	NoDef   string        `env:"TEST_NO_DEF"`
}

func TestLoad(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_HOST", "example.com")
	os.Setenv("TEST_PORT", "9090")
	os.Setenv("TEST_ENABLED", "false")
	os.Setenv("TEST_TIMEOUT", "5s")
	os.Setenv("TEST_NO_DEF", "foo")

	var cfg TestConfig
	err := Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "example.com", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "foo", cfg.NoDef)
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	var cfg TestConfig
	err := Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 1.5, cfg.Rate)
	assert.Empty(t, cfg.NoDef)
}

func TestLoad_EmptyStringRespected(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_HOST", "")

	var cfg TestConfig
	err := Load(&cfg)
	require.NoError(t, err)

	// Empty strings are respected for string fields (no default applied)
	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_InvalidInt(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_PORT", "not-a-number")

	var cfg TestConfig
	err := Load(&cfg)
	require.Error(t, err)

	var invalid ErrInvalidValue
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "TEST_PORT", invalid.EnvVar)
}

func TestLoad_NestedStruct(t *testing.T) {
	type Inner struct {
		DSN string `env:"NESTED_DSN" default:"postgres://localhost/app"`
	}
	type Outer struct {
		Inner Inner
		Name  string `env:"NESTED_NAME"`
	}

	os.Clearenv()
	os.Setenv("NESTED_NAME", "svc")

	var cfg Outer
	err := Load(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", cfg.Inner.DSN)
	assert.Equal(t, "svc", cfg.Name)
}

func TestLoad_NotStructPointer(t *testing.T) {
	var s string
	err := Load(&s)
	var wrongType ErrNotStructPointer
	require.True(t, errors.As(err, &wrongType))

	err = Load(TestConfig{})
	require.True(t, errors.As(err, &wrongType))
}
