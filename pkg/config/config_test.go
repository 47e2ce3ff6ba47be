package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	req := require.New(t)

	c, err := Parse([]byte("environment: test\nserver:\n  port: 9090\n"))
	req.NoError(err)
	req.Equal(9090, c.Server.Port)
	req.Equal("P", c.Ephemeris.DefaultHouseSystem)
	req.Equal(3.0, c.Ephemeris.DefaultTZOffset)
	req.Equal(1200, c.Retrieval.ChunkSize)
	req.Equal(150, c.Retrieval.ChunkOverlap)
	req.Equal(24*time.Hour, c.Cache.TTL)
	req.Equal("gpt-4o-mini", c.LLM.Model)
	req.Equal([]string{"*"}, c.Server.CORSOrigins)
	req.Equal("info", c.Log.Level)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"bad cache":          "cache:\n  type: disk\n",
		"kafka no brokers":   "kafka:\n  enabled: true\n",
		"overlap too large":  "retrieval:\n  chunk_size: 100\n  chunk_overlap: 100\n",
		"house system":       "ephemeris:\n  default_house_system: PK\n",
		"collector no kafka": "log:\n  collector:\n    enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	req := require.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	req.NoError(os.WriteFile(path, []byte("environment: test\nlog:\n  level: debug\n"), 0o644))

	t.Setenv("SE_EPHE_PATH", "/data/ephe")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("PORT", "7000")

	c, err := LoadWithEnv(path)
	req.NoError(err)
	req.Equal("/data/ephe", c.Ephemeris.Path)
	req.Equal("sk-test", c.LLM.APIKey)
	req.Equal([]string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	req.Equal(7000, c.Server.Port)
	req.Equal("debug", c.Log.Level)
}
