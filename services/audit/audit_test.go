package audit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmentModel "clinic-booking/models/appointment"
	"clinic-booking/services/audit"
	"clinic-booking/types"
)

func TestResolveStaffIdentity_NestedAfterFields(t *testing.T) {
	meta := appointmentModel.EventMeta{
		After: &appointmentModel.EventFields{StaffName: "Anika", StaffID: "S1"},
	}

	identity, err := audit.ResolveStaffIdentity(meta)
	require.NoError(t, err)
	assert.Equal(t, "Anika", identity.Name)
	assert.Equal(t, "S1", identity.ID)
}

func TestResolveStaffIdentity_LegacyFlatFields(t *testing.T) {
	meta := appointmentModel.EventMeta{
		EventFields: appointmentModel.EventFields{StaffName: "Rumi"},
	}

	identity, err := audit.ResolveStaffIdentity(meta)
	require.NoError(t, err)
	assert.Equal(t, "Rumi", identity.Name)
	assert.Empty(t, identity.ID)
}

func TestResolveStaffIdentity_IDAloneSuffices(t *testing.T) {
	meta := appointmentModel.EventMeta{
		After: &appointmentModel.EventFields{StaffID: "S7"},
	}

	_, err := audit.ResolveStaffIdentity(meta)
	assert.NoError(t, err)
}

func TestResolveStaffIdentity_MissingIdentityFailsClosed(t *testing.T) {
	_, err := audit.ResolveStaffIdentity(appointmentModel.EventMeta{})
	require.Error(t, err)

	appErr, ok := types.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 422, appErr.Status)
	assert.Equal(t, types.CodeStaffRequired, appErr.Code)
}
