package testutil

// Schema DDL applied to the test database. Mirrors the production
// migrations: shared tables with a tenant_id column guarded by
// row-level security, plus the pre-auth carve-out tables in public.
//
// Policies check three things: the setting exists, it is non-empty,
// and it equals the row's tenant_id. FORCE ROW LEVEL SECURITY makes
// the table owner subject to the policy too, so tests running as the
// database owner exercise the same isolation as production.
//
// References between clinical tables are composite (tenant_id, id)
// foreign keys: foreign key checks do not go through row-level
// security, so a plain id reference could silently point at another
// clinic's row.

// CarveOutMigration creates the tables readable before any tenant
// context exists: the clinic registry, the login directory and
// sessions.
func CarveOutMigration() string {
	return `
		CREATE TABLE IF NOT EXISTS public.tenants (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			contact_email VARCHAR(255),
			phone VARCHAR(50),
			address TEXT,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deactivated_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS public.login_directory (
			email VARCHAR(255) PRIMARY KEY,
			user_id UUID NOT NULL,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS public.sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			refresh_token_hash VARCHAR(64) NOT NULL UNIQUE,
			user_agent TEXT,
			ip_address VARCHAR(45),
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			revoked_at TIMESTAMPTZ
		);
	`
}

// rlsPolicy builds the enable/force/policy statements for one
// tenant-scoped table.
func rlsPolicy(table string) string {
	return `
		ALTER TABLE ` + table + ` ENABLE ROW LEVEL SECURITY;
		ALTER TABLE ` + table + ` FORCE ROW LEVEL SECURITY;
		DROP POLICY IF EXISTS tenant_isolation ON ` + table + `;
		CREATE POLICY tenant_isolation ON ` + table + `
			USING (
				current_setting('app.current_tenant_id', true) IS NOT NULL
				AND current_setting('app.current_tenant_id', true) <> ''
				AND tenant_id = current_setting('app.current_tenant_id', true)::uuid
			)
			WITH CHECK (
				current_setting('app.current_tenant_id', true) IS NOT NULL
				AND current_setting('app.current_tenant_id', true) <> ''
				AND tenant_id = current_setting('app.current_tenant_id', true)::uuid
			);
	`
}

// UsersMigration creates the staff account tables
func UsersMigration() string {
	return `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			role VARCHAR(50) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			CONSTRAINT users_tenant_email_unique UNIQUE (tenant_id, email),
			CONSTRAINT email_format CHECK (email LIKE '%@%')
		);

		CREATE TABLE IF NOT EXISTS user_audit_log (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			actor_id UUID,
			actor_email VARCHAR(255),
			action VARCHAR(100) NOT NULL,
			target_id UUID NOT NULL,
			detail JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	` + rlsPolicy("users") + rlsPolicy("user_audit_log")
}

// RegistryMigration creates the patient and doctor tables
func RegistryMigration() string {
	return `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(50),
			date_of_birth DATE,
			gender VARCHAR(20),
			address TEXT,
			medical_notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			CONSTRAINT patients_tenant_id_unique UNIQUE (tenant_id, id)
		);

		CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			user_id UUID,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			specialty VARCHAR(100) NOT NULL,
			license_number VARCHAR(100) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(50),
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			CONSTRAINT doctors_tenant_license_number_unique UNIQUE (tenant_id, license_number),
			CONSTRAINT doctors_tenant_id_unique UNIQUE (tenant_id, id)
		);
	` + rlsPolicy("patients") + rlsPolicy("doctors")
}

// SchedulingMigration creates the appointment and counter tables
func SchedulingMigration() string {
	return `
		CREATE TABLE IF NOT EXISTS tenant_counters (
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			counter_name VARCHAR(50) NOT NULL,
			value BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (tenant_id, counter_name)
		);

		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			appointment_number VARCHAR(20) NOT NULL,
			patient_id UUID NOT NULL,
			doctor_id UUID NOT NULL,
			scheduled_at TIMESTAMPTZ NOT NULL,
			duration_minutes INT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			reason TEXT,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			cancelled_at TIMESTAMPTZ,
			CONSTRAINT appointments_tenant_appointment_number_unique UNIQUE (tenant_id, appointment_number),
			CONSTRAINT appointments_tenant_id_unique UNIQUE (tenant_id, id),
			CONSTRAINT appointment_status_valid CHECK (status IN ('scheduled', 'confirmed', 'completed', 'cancelled', 'no_show')),
			CONSTRAINT appointments_patient_same_tenant FOREIGN KEY (tenant_id, patient_id) REFERENCES patients (tenant_id, id),
			CONSTRAINT appointments_doctor_same_tenant FOREIGN KEY (tenant_id, doctor_id) REFERENCES doctors (tenant_id, id)
		);
	` + rlsPolicy("tenant_counters") + rlsPolicy("appointments")
}

// ClinicalMigration creates the prescription, case study and dental
// chart tables
func ClinicalMigration() string {
	return `
		CREATE TABLE IF NOT EXISTS prescriptions (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			prescription_number VARCHAR(20) NOT NULL,
			patient_id UUID NOT NULL,
			doctor_id UUID NOT NULL,
			appointment_id UUID,
			medications JSONB NOT NULL,
			notes TEXT,
			issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT prescriptions_tenant_prescription_number_unique UNIQUE (tenant_id, prescription_number),
			CONSTRAINT prescriptions_patient_same_tenant FOREIGN KEY (tenant_id, patient_id) REFERENCES patients (tenant_id, id),
			CONSTRAINT prescriptions_doctor_same_tenant FOREIGN KEY (tenant_id, doctor_id) REFERENCES doctors (tenant_id, id),
			CONSTRAINT prescriptions_appointment_same_tenant FOREIGN KEY (tenant_id, appointment_id) REFERENCES appointments (tenant_id, id)
		);

		CREATE TABLE IF NOT EXISTS case_studies (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			case_number VARCHAR(20) NOT NULL,
			patient_id UUID NOT NULL,
			doctor_id UUID NOT NULL,
			title VARCHAR(255) NOT NULL,
			diagnosis TEXT,
			treatment TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			opened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT case_studies_tenant_case_number_unique UNIQUE (tenant_id, case_number),
			CONSTRAINT case_studies_patient_same_tenant FOREIGN KEY (tenant_id, patient_id) REFERENCES patients (tenant_id, id),
			CONSTRAINT case_studies_doctor_same_tenant FOREIGN KEY (tenant_id, doctor_id) REFERENCES doctors (tenant_id, id)
		);

		CREATE TABLE IF NOT EXISTS dental_chart_entries (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES public.tenants(id),
			patient_id UUID NOT NULL,
			tooth_number INT NOT NULL,
			condition VARCHAR(100) NOT NULL,
			surfaces VARCHAR(20),
			treatment TEXT,
			notes TEXT,
			recorded_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT dental_chart_tenant_patient_tooth_unique UNIQUE (tenant_id, patient_id, tooth_number),
			CONSTRAINT dental_chart_patient_same_tenant FOREIGN KEY (tenant_id, patient_id) REFERENCES patients (tenant_id, id),
			CONSTRAINT tooth_number_valid CHECK (tooth_number / 10 BETWEEN 1 AND 4 AND tooth_number % 10 BETWEEN 1 AND 8)
		);
	` + rlsPolicy("prescriptions") + rlsPolicy("case_studies") + rlsPolicy("dental_chart_entries")
}

// AllMigrations returns the full schema in dependency order
func AllMigrations() []string {
	return []string{
		CarveOutMigration(),
		UsersMigration(),
		RegistryMigration(),
		SchedulingMigration(),
		ClinicalMigration(),
	}
}
