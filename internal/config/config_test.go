package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_SQLiteWithJWT(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/inv.sqlite3")
	t.Setenv("AUTH_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 15, cfg.AIRateLimit)
	require.Equal(t, 60*time.Second, cfg.AIRateWindow)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_MySQLRequiresConnectionSettings(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("AUTH_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_FirebaseRequiresProject(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("AUTH_PROVIDER", "firebase")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	require.ErrorContains(t, err, "FIREBASE_PROJECT_ID")
}
