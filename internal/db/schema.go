package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// At most one non-cancelled booking per (excursion, user): active_marker is 1
// for active rows and NULL for cancelled ones, and NULLs never collide in a
// unique key.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	first_name VARCHAR(255) NOT NULL,
	last_name VARCHAR(255) NOT NULL,
	patronymic VARCHAR(255) NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	birth_date DATE NOT NULL,
	is_admin TINYINT(1) NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS routes (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	description TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	"CREATE TABLE IF NOT EXISTS route_points (\n" +
		"\tid BIGINT AUTO_INCREMENT PRIMARY KEY,\n" +
		"\tdescription TEXT NOT NULL,\n" +
		"\tphoto_path VARCHAR(255) NULL,\n" +
		"\t`order` INT NOT NULL DEFAULT 0,\n" +
		"\tcreated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,\n" +
		"\tupdated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP\n" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",

	`CREATE TABLE IF NOT EXISTS route_route_point (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_id BIGINT NOT NULL,
	route_point_id BIGINT NOT NULL,
	day INT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_route_point (route_id, route_point_id),
	CONSTRAINT fk_rrp_route FOREIGN KEY (route_id) REFERENCES routes(id) ON DELETE CASCADE,
	CONSTRAINT fk_rrp_point FOREIGN KEY (route_point_id) REFERENCES route_points(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS excursions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	start_point VARCHAR(255) NOT NULL,
	start_date DATE NOT NULL,
	start_time TIME NOT NULL,
	all_days INT NOT NULL,
	all_people INT NOT NULL,
	age_limit INT NOT NULL DEFAULT 0,
	cost DECIMAL(10,2) NOT NULL DEFAULT 0,
	route_id BIGINT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_start_point (start_point),
	CONSTRAINT fk_excursion_route FOREIGN KEY (route_id) REFERENCES routes(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	excursion_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	slots INT NOT NULL,
	canceled TINYINT(1) NOT NULL DEFAULT 0,
	active_marker TINYINT GENERATED ALWAYS AS (IF(canceled = 0, 1, NULL)) STORED,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_active_booking (excursion_id, user_id, active_marker),
	KEY idx_excursion_canceled (excursion_id, canceled),
	KEY idx_user_canceled (user_id, canceled),
	CONSTRAINT fk_booking_excursion FOREIGN KEY (excursion_id) REFERENCES excursions(id) ON DELETE CASCADE,
	CONSTRAINT fk_booking_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// activeMarkerUpgrade brings a bookings table created before the single
// active booking key up to date.
var activeMarkerUpgrade = []string{
	`ALTER TABLE bookings
	ADD COLUMN active_marker TINYINT GENERATED ALWAYS AS (IF(canceled = 0, 1, NULL)) STORED`,
	`ALTER TABLE bookings
	ADD UNIQUE KEY uniq_active_booking (excursion_id, user_id, active_marker)`,
}

// EnsureSchema creates missing tables and adds the active booking key to an
// older bookings table. Other existing tables are left untouched.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	if !HasColumn(ctx, q, "bookings", "active_marker") {
		for _, stmt := range activeMarkerUpgrade {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("upgrade bookings: %w", err)
			}
		}
		log.Println("[DB] bookings upgraded with active_marker")
	}
	log.Println("[DB] schema ready")
	return nil
}

func HasTable(ctx context.Context, q Querier, table string) bool {
	var name sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		LIMIT 1
	`, table).Scan(&name)
	if err != nil {
		return false
	}
	return name.Valid && name.String != ""
}

func HasColumn(ctx context.Context, q Querier, table, column string) bool {
	var name sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		  AND column_name = ?
		LIMIT 1
	`, table, column).Scan(&name)
	if err != nil {
		return false
	}
	return name.Valid && name.String != ""
}
