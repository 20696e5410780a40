package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
  mode: release
database:
  driver: sqlite
  path: /tmp/catalog.db
storage:
  buckets:
    - name: photos
      endpoint: s3.example.com
      access_key: AKIA
      secret_key: secret
      kms_key_id: kms-1
      use_ssl: true
    - name: thumbs
      endpoint: localhost:9000
upload:
  max_payload_bytes: 1024
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "/tmp/catalog.db", cfg.Database.DSN())
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.EqualValues(t, 1024, cfg.Upload.MaxPayloadBytes)

	require.Len(t, cfg.Storage.Buckets, 2)
	assert.Equal(t, BucketConfig{
		Name:      "photos",
		Endpoint:  "s3.example.com",
		AccessKey: "AKIA",
		SecretKey: "secret",
		KMSKeyID:  "kms-1",
		UseSSL:    true,
	}, cfg.Storage.Buckets[0])
	assert.Equal(t, "thumbs", cfg.Storage.Buckets[1].Name)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"Valid", Config{Database: DatabaseConfig{Driver: "sqlite"}, Storage: StorageConfig{Buckets: []BucketConfig{{Name: "a"}}}}, false},
		{"NoBuckets", Config{Database: DatabaseConfig{Driver: "postgres"}}, false},
		{"UnnamedBucket", Config{Database: DatabaseConfig{Driver: "sqlite"}, Storage: StorageConfig{Buckets: []BucketConfig{{Endpoint: "x"}}}}, true},
		{"DuplicateBucket", Config{Database: DatabaseConfig{Driver: "sqlite"}, Storage: StorageConfig{Buckets: []BucketConfig{{Name: "a"}, {Name: "a"}}}}, true},
		{"UnknownDriver", Config{Database: DatabaseConfig{Driver: "mysql"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN_Postgres(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "cat", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cat sslmode=disable", d.DSN())
}
