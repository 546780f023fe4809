package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go"
	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	out    *sesv2.SendEmailOutput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func TestSESSendBuildsInput(t *testing.T) {
	api := &fakeSES{out: &sesv2.SendEmailOutput{MessageId: aws.String("0100018e-abc")}}
	tr := newSESTransport(api, "blast-events")

	id, err := tr.Send(context.Background(), newEnvelope("ann@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "0100018e-abc", id)

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, `"Acme News" <news@acme.test>`, aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ann@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Spring update", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>Hi Ann</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
	assert.Equal(t, "UTF-8", aws.ToString(in.Content.Simple.Body.Html.Charset))
	assert.Equal(t, "blast-events", aws.ToString(in.ConfigurationSetName))
}

func TestSESSendWithoutConfigurationSet(t *testing.T) {
	api := &fakeSES{out: &sesv2.SendEmailOutput{}}
	tr := newSESTransport(api, "")

	id, err := tr.Send(context.Background(), newEnvelope("ann@example.com"))
	require.NoError(t, err)
	assert.Empty(t, id, "a missing MessageId is tolerated")
	assert.Nil(t, api.inputs[0].ConfigurationSetName)
}

func TestSESSendAPIError(t *testing.T) {
	api := &fakeSES{err: &smithy.GenericAPIError{
		Code:    "MessageRejected",
		Message: "Email address is not verified.",
	}}
	tr := newSESTransport(api, "")

	_, err := tr.Send(context.Background(), newEnvelope("ann@example.com"))
	require.Error(t, err)
	assert.Equal(t, "ses: MessageRejected: Email address is not verified.", err.Error())
}

func TestSESSendTransportError(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	tr := newSESTransport(&fakeSES{err: cause}, "")

	_, err := tr.Send(context.Background(), newEnvelope("ann@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestNewSESTransportStaticCredentials(t *testing.T) {
	tr, err := NewSESTransport(context.Background(), config.SESConfig{
		Region:    "eu-west-1",
		AccessKey: "AKIATEST",
		SecretKey: "secret",
		Endpoint:  "http://127.0.0.1:4566",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransportSES, tr.Name())
	assert.NoError(t, tr.Close())
}
