package connection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  config.DatabaseConfig{URL: "postgres://u:p@h:5432/db", Host: "ignored"},
			want: "postgres://u:p@h:5432/db",
		},
		{
			name: "discrete settings",
			cfg:  config.DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "db", SSLMode: "require", Timezone: "UTC"},
			want: "host=h port=5432 user=u password=p dbname=db sslmode=require TimeZone=UTC",
		},
		{
			name: "default sslmode",
			cfg:  config.DatabaseConfig{Host: "h", Port: 5432, User: "u", Name: "db"},
			want: "host=h port=5432 user=u password= dbname=db sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_time_logs_active_timer"}
	wrapped := fmt.Errorf("insert: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "idx_time_logs_active_timer"))
	assert.False(t, IsUniqueViolation(wrapped, "idx_profiles_email"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
}

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "report", want: "%report%"},
		{text: "100%", want: `%100\%%`},
		{text: "snake_case", want: `%snake\_case%`},
		{text: `C:\temp`, want: `%C:\\temp%`},
		{text: "", want: "%%"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsPattern(tt.text))
		})
	}
}
