package cmd

import (
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errwrap "github.com/headhuntertrace/headhunter/internal/errors"
)

func TestCheckIdentity(t *testing.T) {
	full := appidentity.Identity{BinaryName: "headhunter", EnvPrefix: "HEADHUNTER_", ConfigName: "headhunter"}
	require.NoError(t, checkIdentity(&full))

	noPrefix := full
	noPrefix.EnvPrefix = ""
	var envelope *gferrors.ErrorEnvelope
	require.ErrorAs(t, checkIdentity(&noPrefix), &envelope)
	assert.Equal(t, errwrap.CodeConfigInvalid, envelope.Code)
	assert.Equal(t, "app identity missing env prefix", envelope.Message)

	require.ErrorAs(t, checkIdentity(nil), &envelope)
	assert.Equal(t, "app identity missing identity", envelope.Message)
}
