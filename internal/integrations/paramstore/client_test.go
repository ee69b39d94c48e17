package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out *ssm.GetParameterOutput
	err error
	in  *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	return f.out, f.err
}

func tokenOutput(value *string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/eco-assistant/waqi-token"),
		Type:  types.ParameterTypeSecureString,
		Value: value,
	}}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_DecryptsToken(t *testing.T) {
	api := &fakeSSM{out: tokenOutput(aws.String(`{"token":"w1"}`))}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), " /eco-assistant/waqi-token ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"w1"}`, v)
	require.Equal(t, "/eco-assistant/waqi-token", aws.ToString(api.in.Name))
	require.True(t, aws.ToBool(api.in.WithDecryption))
}

func TestGetParameter_Failures(t *testing.T) {
	cases := []struct {
		name     string
		param    string
		api      *fakeSSM
		notFound bool
		contains string
	}{
		{name: "empty name", param: "  ", api: &fakeSSM{}, contains: "name is required"},
		{name: "unknown parameter", param: "/eco/missing", api: &fakeSSM{err: &types.ParameterNotFound{}}, notFound: true, contains: "/eco/missing"},
		{name: "api error", param: "/eco/waqi-token", api: &fakeSSM{err: errors.New("throttled")}, contains: "throttled"},
		{name: "nil value", param: "/eco/waqi-token", api: &fakeSSM{out: tokenOutput(nil)}, contains: "no value"},
		{name: "nil parameter", param: "/eco/waqi-token", api: &fakeSSM{out: &ssm.GetParameterOutput{}}, contains: "no value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.api)
			require.NoError(t, err)

			_, err = c.GetParameter(context.Background(), tc.param)
			require.ErrorContains(t, err, tc.contains)
			require.Equal(t, tc.notFound, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStaticTokens(t *testing.T) {
	s := StaticTokens("/eco-assistant/", map[string]string{"waqi-token": "w1", "openweather-token": ""})

	v, err := s.GetParameter(context.Background(), "/eco-assistant/waqi-token")
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"w1"}`, v)

	_, err = s.GetParameter(context.Background(), "/eco-assistant/openweather-token")
	require.ErrorIs(t, err, ErrNotFound)
}
