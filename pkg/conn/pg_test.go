package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cases := []struct {
		name string
		opt  Option
		want string
	}{
		{"defaults", Option{}, "postgres://localhost:5432?sslmode=disable"},
		{"full", Option{
			Host:     "db",
			Port:     6543,
			User:     "trader",
			Password: "p@ss",
			Database: "autotrader",
			SSLMode:  "require",
			Params:   map[string]string{"application_name": "autotrader", "": "x"},
		}, "postgres://trader:p%40ss@db:6543/autotrader?application_name=autotrader&sslmode=require"},
		{"user only", Option{User: "trader"}, "postgres://trader@localhost:5432?sslmode=disable"},
		{"conn string", Option{ConnString: "host=db user=x", Host: "ignored"}, "host=db user=x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.opt.DSN())
		})
	}
}
