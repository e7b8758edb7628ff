package sqldb

// dialect holds the driver-specific parts of the store: DDL and the single
// statement that allocates participant numbers.
type dialect struct {
	pragmas      []string
	schema       []string
	addedColumns []column

	// nextNumber bumps the participant_number sequence to
	// max(last issued, max existing) + 1.
	nextNumber string
}

type column struct {
	name       string
	definition string
}

const seqParticipantNumber = "participant_number"

var dialects = map[string]dialect{
	DriverSQLite: {
		pragmas: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
		},
		schema: []string{`
			CREATE TABLE IF NOT EXISTS participants (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id            TEXT NOT NULL UNIQUE,
				user_name          TEXT NOT NULL DEFAULT '',
				user_phone         TEXT NOT NULL DEFAULT '',
				first_time         BOOLEAN NOT NULL DEFAULT 0,
				paid               BOOLEAN NOT NULL DEFAULT 0,
				enter_date         TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_participants_name_phone ON participants (user_name, user_phone)`,
			`CREATE TABLE IF NOT EXISTS sequences (
				name  TEXT PRIMARY KEY,
				value INTEGER NOT NULL
			)`,
			`INSERT OR IGNORE INTO sequences (name, value) VALUES ('participant_number', 0)`,
		},
		// The first deployments only had the columns above; everything else was
		// added release by release. New databases get them through the same path.
		addedColumns: []column{
			{"email", "TEXT NOT NULL DEFAULT ''"},
			{"city", "TEXT NOT NULL DEFAULT ''"},
			{"church", "TEXT NOT NULL DEFAULT ''"},
			{"birth_date", "TEXT NOT NULL DEFAULT ''"},
			{"payment_amount", "INTEGER NOT NULL DEFAULT 0"},
			{"promo_code", "TEXT NOT NULL DEFAULT ''"},
			{"promo_discount", "INTEGER NOT NULL DEFAULT 0"},
			{"payment_date", "TEXT NOT NULL DEFAULT ''"},
			{"letter_date", "TEXT NOT NULL DEFAULT ''"},
			{"bill_file", "TEXT NOT NULL DEFAULT ''"},
			{"participant_number", "INTEGER NOT NULL DEFAULT 0"},
			{"created_at", "DATETIME"},
			{"updated_at", "DATETIME NOT NULL DEFAULT '1970-01-01 00:00:00'"},
		},
		nextNumber: `
			UPDATE sequences
			SET value = MAX(value, (SELECT COALESCE(MAX(participant_number), 0) FROM participants)) + 1
			WHERE name = ?`,
	},

	DriverPostgres: {
		schema: []string{`
			CREATE TABLE IF NOT EXISTS participants (
				id                 BIGSERIAL PRIMARY KEY,
				user_id            TEXT NOT NULL UNIQUE,
				user_name          TEXT NOT NULL DEFAULT '',
				user_phone         TEXT NOT NULL DEFAULT '',
				email              TEXT NOT NULL DEFAULT '',
				city               TEXT NOT NULL DEFAULT '',
				church             TEXT NOT NULL DEFAULT '',
				birth_date         TEXT NOT NULL DEFAULT '',
				first_time         BOOLEAN NOT NULL DEFAULT FALSE,
				paid               BOOLEAN NOT NULL DEFAULT FALSE,
				payment_amount     BIGINT NOT NULL DEFAULT 0,
				promo_code         TEXT NOT NULL DEFAULT '',
				promo_discount     BIGINT NOT NULL DEFAULT 0,
				payment_date       TEXT NOT NULL DEFAULT '',
				letter_date        TEXT NOT NULL DEFAULT '',
				enter_date         TEXT NOT NULL DEFAULT '',
				bill_file          TEXT NOT NULL DEFAULT '',
				participant_number BIGINT NOT NULL DEFAULT 0,
				created_at         TIMESTAMPTZ,
				updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_participants_name_phone ON participants (user_name, user_phone)`,
			`CREATE TABLE IF NOT EXISTS sequences (
				name  TEXT PRIMARY KEY,
				value BIGINT NOT NULL
			)`,
			`INSERT INTO sequences (name, value) VALUES ('participant_number', 0) ON CONFLICT (name) DO NOTHING`,
		},
		nextNumber: `
			UPDATE sequences
			SET value = GREATEST(value, (SELECT COALESCE(MAX(participant_number), 0) FROM participants)) + 1
			WHERE name = ?`,
	},

	DriverMySQL: {
		schema: []string{`
			CREATE TABLE IF NOT EXISTS participants (
				id                 BIGINT AUTO_INCREMENT PRIMARY KEY,
				user_id            VARCHAR(64) NOT NULL UNIQUE,
				user_name          VARCHAR(255) NOT NULL DEFAULT '',
				user_phone         VARCHAR(64) NOT NULL DEFAULT '',
				email              VARCHAR(255) NOT NULL DEFAULT '',
				city               VARCHAR(255) NOT NULL DEFAULT '',
				church             VARCHAR(255) NOT NULL DEFAULT '',
				birth_date         VARCHAR(32) NOT NULL DEFAULT '',
				first_time         BOOLEAN NOT NULL DEFAULT FALSE,
				paid               BOOLEAN NOT NULL DEFAULT FALSE,
				payment_amount     BIGINT NOT NULL DEFAULT 0,
				promo_code         VARCHAR(255) NOT NULL DEFAULT '',
				promo_discount     BIGINT NOT NULL DEFAULT 0,
				payment_date       VARCHAR(64) NOT NULL DEFAULT '',
				letter_date        VARCHAR(64) NOT NULL DEFAULT '',
				enter_date         VARCHAR(64) NOT NULL DEFAULT '',
				bill_file          VARCHAR(255) NOT NULL DEFAULT '',
				participant_number BIGINT NOT NULL DEFAULT 0,
				created_at         DATETIME(6) NULL,
				updated_at         DATETIME(6) NOT NULL,
				INDEX idx_participants_name_phone (user_name, user_phone)
			) CHARACTER SET utf8mb4`,
			`CREATE TABLE IF NOT EXISTS sequences (
				name  VARCHAR(64) PRIMARY KEY,
				value BIGINT NOT NULL
			)`,
			`INSERT IGNORE INTO sequences (name, value) VALUES ('participant_number', 0)`,
		},
		nextNumber: `
			UPDATE sequences
			SET value = GREATEST(value, (SELECT COALESCE(MAX(participant_number), 0) FROM participants)) + 1
			WHERE name = ?`,
	},
}
