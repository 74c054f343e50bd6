package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{
			name: "postgres",
			cfg:  Config{Driver: DriverPostgres, Host: "db", Port: "5432", User: "u", Password: "p", Name: "checkout", SSLMode: "disable"},
			want: "host=db port=5432 user=u password=p dbname=checkout sslmode=disable",
		},
		{
			name: "mysql",
			cfg:  Config{Driver: DriverMySQL, Host: "db", Port: "3306", User: "u", Password: "p", Name: "checkout"},
			want: "u:p@tcp(db:3306)/checkout?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "sqlite",
			cfg:  Config{Driver: DriverSQLite, Path: "/tmp/c.db"},
			want: "/tmp/c.db?_busy_timeout=5000&_foreign_keys=on",
		},
		{name: "sqlite without path", cfg: Config{Driver: DriverSQLite}, wantErr: true},
		{name: "unknown driver", cfg: Config{Driver: "oracle"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.DSN()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got dsn %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DSN: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(&Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "t.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if SupportsRowLocks(db) {
		t.Fatal("sqlite must not report row locks")
	}
	if err := Ping(context.Background(), db); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !strings.EqualFold(db.Dialector.Name(), DriverSQLite) {
		t.Fatalf("dialector = %s", db.Dialector.Name())
	}
}
