package config

import (
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
)

func embedded(value string) commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "embedded", Value: value}
}

func TestMakeConnStr(t *testing.T) {
	tests := []struct {
		name        string
		conf        Database
		wantConnStr string
		assertErr   assert.ErrorAssertionFunc
	}{
		{
			name: "all refs resolve",
			conf: Database{
				Host:     embedded("db.internal"),
				User:     embedded("gateway"),
				Password: embedded("secret"),
				Name:     "auth_gateway",
				Port:     "5432",
			},
			wantConnStr: "host=db.internal user=gateway password=secret dbname=auth_gateway port=5432",
			assertErr:   assert.NoError,
		},
		{
			name: "host ref does not resolve",
			conf: Database{
				Host:     commoncfg.SourceRef{Source: "invalid-source", Value: "db.internal"},
				User:     embedded("gateway"),
				Password: embedded("secret"),
				Name:     "auth_gateway",
				Port:     "5432",
			},
			assertErr: assert.Error,
		},
		{
			name: "user ref does not resolve",
			conf: Database{
				Host:     embedded("db.internal"),
				User:     commoncfg.SourceRef{Source: "invalid-source", Value: "gateway"},
				Password: embedded("secret"),
				Name:     "auth_gateway",
				Port:     "5432",
			},
			assertErr: assert.Error,
		},
		{
			name: "password ref does not resolve",
			conf: Database{
				Host:     embedded("db.internal"),
				User:     embedded("gateway"),
				Password: commoncfg.SourceRef{Source: "invalid-source", Value: "secret"},
				Name:     "auth_gateway",
				Port:     "5432",
			},
			assertErr: assert.Error,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			connStr, err := MakeConnStr(tc.conf)
			if !tc.assertErr(t, err) || err != nil {
				return
			}

			assert.Equal(t, tc.wantConnStr, connStr)
		})
	}
}
