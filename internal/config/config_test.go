package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    LinearConfig
		wantErr bool
	}{
		{
			name: "Defaults",
			env:  map[string]string{},
			want: LinearConfig{APIURL: DefaultLinearAPIURL},
		},
		{
			name: "API key and team",
			env: map[string]string{
				"LINEAR_API_KEY": "lin_api_123",
				"LINEAR_TEAM_ID": "team-1",
			},
			want: LinearConfig{APIKey: "lin_api_123", TeamID: "team-1", APIURL: DefaultLinearAPIURL},
		},
		{
			name: "Custom endpoint and OAuth token",
			env: map[string]string{
				"LINEAR_OAUTH_TOKEN": "oauth-token",
				"LINEAR_API_URL":     "http://localhost:9999/graphql",
			},
			want: LinearConfig{OAuthToken: "oauth-token", APIURL: "http://localhost:9999/graphql"},
		},
		{
			name:    "Invalid log level",
			env:     map[string]string{"LOG_LEVEL": "chatty"},
			wantErr: true,
		},
		{
			name:    "Invalid log format",
			env:     map[string]string{"LOG_FORMAT": "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"LINEAR_API_KEY", "LINEAR_OAUTH_TOKEN", "LINEAR_TEAM_ID", "LINEAR_API_URL", "LOG_LEVEL", "LOG_FORMAT"} {
				t.Setenv(key, tt.env[key])
			}

			config, err := LoadConfig()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, config.Linear)
			assert.Equal(t, "info", config.Logging.Level)
		})
	}
}

func TestValidateLinearConfig(t *testing.T) {
	tests := []struct {
		name    string
		linear  LinearConfig
		wantErr bool
	}{
		{name: "API key present", linear: LinearConfig{APIKey: "lin_api_123"}},
		{name: "OAuth token present", linear: LinearConfig{OAuthToken: "token"}},
		{name: "No credentials", linear: LinearConfig{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLinearConfig(&Config{Linear: tt.linear})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
