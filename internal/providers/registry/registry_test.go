package registry

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestBuildSkipsAbsentProviders(t *testing.T) {
	configs := []config.BrandConfig{
		{
			Key:      "acme",
			Name:     "Acme",
			Currency: "USD",
			Meta:     &config.MetaCredentials{AccessToken: "tok", AccountID: "act_1"},
			Sendgrid: &config.SendgridCredentials{APIKey: "sg-key"},
		},
	}

	brands, err := Build(context.Background(), configs, testLogger())
	require.NoError(t, err)
	require.Len(t, brands, 1)

	brand := brands[0]
	require.Equal(t, "acme", brand.Key)
	require.Nil(t, brand.Orders)
	require.Nil(t, brand.Traffic)
	require.NotNil(t, brand.Ads)
	require.NotNil(t, brand.Email)
}

func TestBuildDisablesProviderOnBadCredentials(t *testing.T) {
	configs := []config.BrandConfig{
		{
			Key:      "acme",
			Name:     "Acme",
			Currency: "USD",
			// Missing account ID must not fail the whole roster.
			Meta:     &config.MetaCredentials{AccessToken: "tok"},
			Sendgrid: &config.SendgridCredentials{APIKey: "sg-key"},
		},
	}

	brands, err := Build(context.Background(), configs, testLogger())
	require.NoError(t, err)
	require.Nil(t, brands[0].Ads)
	require.NotNil(t, brands[0].Email)
}

func TestBuildPreservesRosterOrder(t *testing.T) {
	configs := []config.BrandConfig{
		{Key: "north", Name: "North", Currency: "USD"},
		{Key: "south", Name: "South", Currency: "GBP"},
	}

	brands, err := Build(context.Background(), configs, testLogger())
	require.NoError(t, err)
	require.Equal(t, "north", brands[0].Key)
	require.Equal(t, "south", brands[1].Key)
}

func TestBuildRejectsEmptyRoster(t *testing.T) {
	_, err := Build(context.Background(), nil, testLogger())
	require.Error(t, err)
}
