package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission_AdminWildcard(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, "patients.read"))
	assert.True(t, HasPermission(RoleAdmin, "users.write"))
	assert.True(t, HasPermission(RoleAdmin, "anything.at.all"))
}

func TestHasPermission_DoctorScope(t *testing.T) {
	assert.True(t, HasPermission(RoleDoctor, "patients.read"))
	assert.True(t, HasPermission(RoleDoctor, "prescriptions.write"))
	assert.True(t, HasPermission(RoleDoctor, "dentalcharts.write"))
	assert.True(t, HasPermission(RoleDoctor, "doctors.read"))

	assert.False(t, HasPermission(RoleDoctor, "doctors.write"))
	assert.False(t, HasPermission(RoleDoctor, "users.read"))
}

func TestHasPermission_ReceptionistScope(t *testing.T) {
	assert.True(t, HasPermission(RoleReceptionist, "patients.read"))
	assert.True(t, HasPermission(RoleReceptionist, "appointments.write"))

	assert.False(t, HasPermission(RoleReceptionist, "prescriptions.read"))
	assert.False(t, HasPermission(RoleReceptionist, "casestudies.read"))
	assert.False(t, HasPermission(RoleReceptionist, "users.write"))
}

func TestHasPermission_UnknownRole(t *testing.T) {
	assert.False(t, HasPermission("superuser", "patients.read"))
	assert.False(t, HasPermission("", "patients.read"))
}

func TestHasPermission_EmptyRequirement(t *testing.T) {
	assert.True(t, HasPermission(RoleReceptionist, ""))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleDoctor))
	assert.True(t, ValidRole(RoleReceptionist))
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole(""))
}

func TestForRole(t *testing.T) {
	assert.Equal(t, []string{"*"}, ForRole(RoleAdmin))
	assert.Nil(t, ForRole("unknown"))
}
