package auth

const (
	PermManageUsers        = "users.manage"
	PermManageRoles        = "roles.manage"
	PermManagePermissions  = "permissions.manage"
	PermManageHospitals    = "hospitals.manage"
	PermManagePatients     = "patients.manage"
	PermManageDoctors      = "doctors.manage"
	PermManageAppointments = "appointments.manage"
	PermViewRecords        = "records.view"
)

// BuiltinPermissions are ensured at startup so roles can reference them
// immediately.
var BuiltinPermissions = []Permission{
	{Name: PermManageUsers, Description: "Create staff accounts and manage user grants"},
	{Name: PermManageRoles, Description: "Create roles and change role grants"},
	{Name: PermManagePermissions, Description: "Define permissions"},
	{Name: PermManageHospitals, Description: "Register and manage hospitals"},
	{Name: PermManagePatients, Description: "Register and manage patients"},
	{Name: PermManageDoctors, Description: "Register and manage doctors"},
	{Name: PermManageAppointments, Description: "Book and manage appointments"},
	{Name: PermViewRecords, Description: "Read medical registry records"},
}
