package storage

import (
	"errors"
	"fmt"
	"regexp"
)

// ConnectionStringPlaceholder shows the accepted connection string shape.
const ConnectionStringPlaceholder = "DefaultEndpointsProtocol=...;AccountName=...;AccountKey=...;EndpointSuffix=..."

// ErrInvalidConnectionString is returned when a required property is missing.
var ErrInvalidConnectionString = errors.New("invalid connection string")

// ConnectionString holds the properties of an account connection string that
// are needed to attach it.
type ConnectionString struct {
	DefaultEndpointsProtocol string
	AccountName              string
	AccountKey               string
	EndpointSuffix           string
}

var connStringProps = map[string]*regexp.Regexp{}

func init() {
	for _, prop := range []string{"DefaultEndpointsProtocol", "AccountName", "AccountKey", "EndpointSuffix"} {
		connStringProps[prop] = regexp.MustCompile(`(?i)(?:^|;)\s*` + prop + `=([^;]+)(?:;|$)`)
	}
}

// ParseConnectionString extracts the four required properties from s.
// Property names are matched case-insensitively and may appear in any order.
func ParseConnectionString(s string) (ConnectionString, error) {
	get := func(prop string) string {
		m := connStringProps[prop].FindStringSubmatch(s)
		if m == nil {
			return ""
		}
		return m[1]
	}

	cs := ConnectionString{
		DefaultEndpointsProtocol: get("DefaultEndpointsProtocol"),
		AccountName:              get("AccountName"),
		AccountKey:               get("AccountKey"),
		EndpointSuffix:           get("EndpointSuffix"),
	}

	if cs.DefaultEndpointsProtocol == "" || cs.AccountName == "" || cs.AccountKey == "" || cs.EndpointSuffix == "" {
		return ConnectionString{}, fmt.Errorf("%w: format must match %q", ErrInvalidConnectionString, ConnectionStringPlaceholder)
	}
	return cs, nil
}

// Endpoint returns the primary endpoint of svc, e.g.
// https://myaccount.blob.core.windows.net.
func (cs ConnectionString) Endpoint(svc Service) string {
	return fmt.Sprintf("%s://%s.%s.%s", cs.DefaultEndpointsProtocol, cs.AccountName, svc, cs.EndpointSuffix)
}

// Account converts the connection string into an attachable account.
func (cs ConnectionString) Account() Account {
	return Account{
		Name: cs.AccountName,
		Key:  AccountKey{KeyName: primaryKeyName, Value: cs.AccountKey},
		Endpoints: Endpoints{
			Blob:  cs.Endpoint(Blob),
			File:  cs.Endpoint(File),
			Queue: cs.Endpoint(Queue),
			Table: cs.Endpoint(Table),
		},
	}
}
