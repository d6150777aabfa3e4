package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-timetable/scraper"
	"campus-timetable/timetable"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "timetable.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{"username": "19300000001"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, timetable.Undergraduate, cfg.StudentType)
	assert.Equal(t, scraper.DefaultLoginURL, cfg.LoginURL)
	assert.Equal(t, scraper.DefaultConcurrency, cfg.Graduate.Concurrency)
	assert.Equal(t, scraper.DefaultUndergraduateEndpoints, cfg.Undergraduate.Endpoints)
	assert.Equal(t, scraper.DefaultGraduateEndpoints, cfg.Graduate.Endpoints)
	assert.Equal(t, "primary", cfg.Google.CalendarID)
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `{
		"student_type": "grad",
		"username": "22110000001",
		"cache_dir": "/tmp/tt",
		"graduate": {"concurrency": 3},
		"start_dates": {"484": "2024-09-09"}
	}`)
	t.Setenv("TIMETABLE_GRADUATE_CONCURRENCY", "9")
	t.Setenv("TIMETABLE_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, timetable.Graduate, cfg.StudentType)
	assert.Equal(t, 9, cfg.Graduate.Concurrency)
	assert.Equal(t, "hunter2", cfg.Password)
	assert.Equal(t, "/tmp/tt", cfg.CacheDir)

	dates, err := cfg.StartDateContext()
	require.NoError(t, err)
	require.Contains(t, dates, 484)
	assert.True(t, time.Date(2024, 9, 9, 0, 0, 0, 0, timetable.CampusLocation).Equal(dates[484]))
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, `{}`)
	dotEnv := filepath.Join(filepath.Dir(path), ".env")
	require.NoError(t, os.WriteFile(dotEnv, []byte("TIMETABLE_USERNAME=from-dotenv\n"), 0o600))
	defer os.Unsetenv("TIMETABLE_USERNAME")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Username)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{
			name:   "missing username",
			body:   `{}`,
			fields: []string{"username"},
		},
		{
			name:   "unknown student type",
			body:   `{"username": "u", "student_type": "staff"}`,
			fields: []string{"student_type"},
		},
		{
			name:   "concurrency out of range",
			body:   `{"username": "u", "graduate": {"concurrency": 40}}`,
			fields: []string{"graduate.concurrency"},
		},
		{
			name:   "bad start date",
			body:   `{"username": "u", "start_dates": {"484": "9/9/2024"}}`,
			fields: []string{"start_dates"},
		},
		{
			name:   "google without credentials",
			body:   `{"username": "u", "google": {"enabled": true}}`,
			fields: []string{"google.client_id", "google.client_secret"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), err.Error())
			for _, f := range tc.fields {
				assert.Contains(t, verr.Fields, f)
			}
			assert.Len(t, verr.Fields, len(tc.fields))
		})
	}
}

func TestStartDateContextRejectsBadID(t *testing.T) {
	cfg := Config{StartDates: map[string]string{"autumn": "2024-09-09"}}
	_, err := cfg.StartDateContext()
	assert.Error(t, err)
}
