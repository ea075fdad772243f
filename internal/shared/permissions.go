package shared

// Permission names declared by route policies. Administration seeds these
// into the permissions table; the engine compares by name.
const (
	PermUsersRead  = "users_read"
	PermUsersWrite = "users_write"

	PermRolesRead  = "roles_read"
	PermRolesWrite = "roles_write"

	PermCompaniesRead  = "companies_read"
	PermCompaniesWrite = "companies_write"

	PermCustomersRead  = "customers_read"
	PermCustomersWrite = "customers_write"

	PermPlansRead  = "plans_read"
	PermPlansWrite = "plans_write"

	PermSubscriptionsRead  = "subscriptions_read"
	PermSubscriptionsWrite = "subscriptions_write"

	PermPaymentsRead  = "payments_read"
	PermPaymentsWrite = "payments_write"

	PermTicketsRead  = "tickets_read"
	PermTicketsWrite = "tickets_write"

	PermSettingsRead  = "settings_read"
	PermSettingsWrite = "settings_write"

	PermPagesRead  = "pages_read"
	PermPagesWrite = "pages_write"

	PermSessionsRead  = "sessions_read"
	PermSessionsWrite = "sessions_write"

	PermDashboardRead = "dashboard_read"
)
