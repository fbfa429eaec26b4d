package store

const postgresMigration = `
CREATE TABLE IF NOT EXISTS promoters (
	id                   UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name_en              TEXT NOT NULL,
	name_ar              TEXT NOT NULL DEFAULT '',
	id_card_number       TEXT NOT NULL,
	passport_number      TEXT,
	id_card_expiry_date  DATE,
	passport_expiry_date DATE,
	employer_id          TEXT,
	email                TEXT,
	phone                TEXT,
	mobile_number        TEXT,
	nationality          TEXT,
	work_location        TEXT,
	notes                TEXT,
	status               TEXT NOT NULL DEFAULT 'active',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contracts (
	id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	contract_number TEXT,
	promoter_id     UUID NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	status          TEXT NOT NULL DEFAULT 'draft',
	start_date      DATE,
	end_date        DATE,
	contract_value  NUMERIC(12,2),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS promoter_skills (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	promoter_id UUID NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	skill       TEXT NOT NULL,
	level       TEXT
);

CREATE TABLE IF NOT EXISTS promoter_experience (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	promoter_id UUID NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	company     TEXT NOT NULL,
	role        TEXT NOT NULL,
	start_date  DATE,
	end_date    DATE,
	description TEXT
);

CREATE TABLE IF NOT EXISTS promoter_education (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	promoter_id UUID NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	degree      TEXT NOT NULL,
	institution TEXT NOT NULL,
	year        INTEGER
);

CREATE TABLE IF NOT EXISTS promoter_documents (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	promoter_id   UUID NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	document_type TEXT NOT NULL,
	file_name     TEXT,
	file_url      TEXT,
	uploaded_on   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_promoters_name_en ON promoters(name_en);
CREATE INDEX IF NOT EXISTS idx_promoters_status ON promoters(status);
CREATE INDEX IF NOT EXISTS idx_promoters_id_card_expiry ON promoters(id_card_expiry_date);
CREATE INDEX IF NOT EXISTS idx_promoters_passport_expiry ON promoters(passport_expiry_date);
CREATE INDEX IF NOT EXISTS idx_contracts_promoter_status ON contracts(promoter_id, status);
CREATE INDEX IF NOT EXISTS idx_promoter_skills_promoter ON promoter_skills(promoter_id);
CREATE INDEX IF NOT EXISTS idx_promoter_experience_promoter ON promoter_experience(promoter_id);
CREATE INDEX IF NOT EXISTS idx_promoter_education_promoter ON promoter_education(promoter_id);
CREATE INDEX IF NOT EXISTS idx_promoter_documents_promoter ON promoter_documents(promoter_id);

CREATE OR REPLACE FUNCTION get_promoters_with_analytics(
	p_page            INTEGER DEFAULT 1,
	p_limit           INTEGER DEFAULT 10,
	p_search          TEXT DEFAULT NULL,
	p_status          TEXT DEFAULT NULL,
	p_overall_status  TEXT DEFAULT NULL,
	p_work_location   TEXT DEFAULT NULL,
	p_document_status TEXT DEFAULT NULL,
	p_has_contracts   BOOLEAN DEFAULT NULL,
	p_sort_by         TEXT DEFAULT 'name_en',
	p_sort_order      TEXT DEFAULT 'asc'
) RETURNS TABLE (data JSONB, total_count BIGINT, page INTEGER, "limit" INTEGER, total_pages INTEGER)
LANGUAGE sql STABLE AS $fn$
WITH base AS (
	SELECT p.*,
		CASE
			WHEN p.id_card_expiry_date IS NULL THEN 'missing'
			WHEN p.id_card_expiry_date < CURRENT_DATE THEN 'expired'
			WHEN p.id_card_expiry_date <= CURRENT_DATE + 30 THEN 'expiring'
			ELSE 'valid'
		END AS id_card_status,
		CASE
			WHEN p.passport_expiry_date IS NULL THEN 'missing'
			WHEN p.passport_expiry_date < CURRENT_DATE THEN 'expired'
			WHEN p.passport_expiry_date <= CURRENT_DATE + 30 THEN 'expiring'
			ELSE 'valid'
		END AS passport_status,
		p.id_card_expiry_date - CURRENT_DATE AS days_until_id_expiry,
		p.passport_expiry_date - CURRENT_DATE AS days_until_passport_expiry,
		COALESCE(c.total, 0) AS total_contracts,
		COALESCE(c.active, 0) AS active_contracts,
		COALESCE(c.completed, 0) AS completed_contracts,
		COALESCE(c.value, 0)::float8 AS total_contract_value
	FROM promoters p
	LEFT JOIN LATERAL (
		SELECT count(*) AS total,
			count(*) FILTER (WHERE status = 'active') AS active,
			count(*) FILTER (WHERE status = 'completed') AS completed,
			sum(contract_value) AS value
		FROM contracts
		WHERE promoter_id = p.id
	) c ON true
),
scored AS (
	SELECT b.*,
		CASE
			WHEN b.id_card_status = 'expired' OR b.passport_status = 'expired' THEN 'critical'
			WHEN b.id_card_status = 'expiring' OR b.passport_status = 'expiring' THEN 'warning'
			WHEN b.status <> 'active' THEN 'inactive'
			ELSE 'active'
		END AS overall_status,
		CASE
			WHEN b.total_contracts = 0 THEN NULL
			ELSE round(100.0 * b.completed_contracts / b.total_contracts, 2)::float8
		END AS performance_score
	FROM base b
),
filtered AS (
	SELECT s.*
	FROM scored s
	WHERE (p_search IS NULL
			OR s.name_en ILIKE '%' || p_search || '%'
			OR s.name_ar ILIKE '%' || p_search || '%'
			OR s.id_card_number ILIKE '%' || p_search || '%')
		AND (p_status IS NULL OR s.status = p_status)
		AND (p_overall_status IS NULL OR s.overall_status = p_overall_status)
		AND (p_work_location IS NULL OR s.work_location = p_work_location)
		AND (p_document_status IS NULL
			OR (p_document_status = 'expired' AND (s.id_card_status = 'expired' OR s.passport_status = 'expired'))
			OR (p_document_status = 'expiring' AND (s.id_card_status = 'expiring' OR s.passport_status = 'expiring'))
			OR (p_document_status = 'valid' AND s.id_card_status = 'valid' AND s.passport_status = 'valid'))
		AND (p_has_contracts IS NULL OR (s.total_contracts > 0) = p_has_contracts)
),
ranked AS (
	SELECT f.*,
		row_number() OVER (
			ORDER BY
				CASE WHEN lower(p_sort_order) = 'asc' THEN
					CASE p_sort_by
						WHEN 'status' THEN f.status
						WHEN 'created_at' THEN to_char(f.created_at, 'YYYYMMDDHH24MISSUS')
						WHEN 'overall_status' THEN f.overall_status
						ELSE f.name_en
					END
				END ASC,
				CASE WHEN lower(p_sort_order) <> 'asc' THEN
					CASE p_sort_by
						WHEN 'status' THEN f.status
						WHEN 'created_at' THEN to_char(f.created_at, 'YYYYMMDDHH24MISSUS')
						WHEN 'overall_status' THEN f.overall_status
						ELSE f.name_en
					END
				END DESC,
				f.id
		) AS rn
	FROM filtered f
),
windowed AS (
	SELECT r.*
	FROM ranked r
	WHERE r.rn > (GREATEST(p_page, 1) - 1) * GREATEST(p_limit, 1)
		AND r.rn <= GREATEST(p_page, 1) * GREATEST(p_limit, 1)
)
SELECT
	COALESCE((SELECT jsonb_agg(to_jsonb(w) - 'rn' ORDER BY w.rn) FROM windowed w), '[]'::jsonb),
	(SELECT count(*) FROM filtered),
	GREATEST(p_page, 1),
	GREATEST(p_limit, 1),
	CEIL((SELECT count(*) FROM filtered)::numeric / GREATEST(p_limit, 1))::integer
$fn$;

CREATE OR REPLACE FUNCTION get_promoter_performance_stats()
RETURNS TABLE (
	total_promoters           BIGINT,
	active_promoters          BIGINT,
	inactive_promoters        BIGINT,
	critical_status_count     BIGINT,
	warning_status_count      BIGINT,
	total_contracts           BIGINT,
	total_contract_value      DOUBLE PRECISION,
	average_contract_duration DOUBLE PRECISION,
	utilization_rate          DOUBLE PRECISION
)
LANGUAGE sql STABLE AS $fn$
WITH p AS (
	SELECT
		count(*) AS total,
		count(*) FILTER (WHERE status = 'active') AS active,
		count(*) FILTER (WHERE status <> 'active') AS inactive,
		count(*) FILTER (WHERE id_card_expiry_date < CURRENT_DATE
			OR passport_expiry_date < CURRENT_DATE) AS critical,
		count(*) FILTER (WHERE NOT (id_card_expiry_date < CURRENT_DATE OR passport_expiry_date < CURRENT_DATE)
			AND (id_card_expiry_date <= CURRENT_DATE + 30 OR passport_expiry_date <= CURRENT_DATE + 30)) AS warning
	FROM promoters
),
c AS (
	SELECT
		count(*) AS total,
		COALESCE(sum(contract_value), 0)::float8 AS value,
		COALESCE(avg(end_date - start_date) FILTER (WHERE end_date IS NOT NULL AND start_date IS NOT NULL), 0)::float8 AS duration,
		count(DISTINCT promoter_id) FILTER (WHERE status = 'active') AS engaged
	FROM contracts
)
SELECT
	p.total, p.active, p.inactive, p.critical, p.warning,
	c.total, c.value, round(c.duration::numeric, 2)::float8,
	CASE WHEN p.active = 0 THEN 0 ELSE round(100.0 * c.engaged / p.active, 2)::float8 END
FROM p, c
$fn$;
`

// SQLite has no stored procedures, so the analytics RPCs are Postgres-only.
// Timestamps default to RFC3339 text so rows decode into time.Time.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS promoters (
	id                   TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	name_en              TEXT NOT NULL,
	name_ar              TEXT NOT NULL DEFAULT '',
	id_card_number       TEXT NOT NULL,
	passport_number      TEXT,
	id_card_expiry_date  TEXT,
	passport_expiry_date TEXT,
	employer_id          TEXT,
	email                TEXT,
	phone                TEXT,
	mobile_number        TEXT,
	nationality          TEXT,
	work_location        TEXT,
	notes                TEXT,
	status               TEXT NOT NULL DEFAULT 'active',
	created_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
	updated_at           TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS contracts (
	id              TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	contract_number TEXT,
	promoter_id     TEXT NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	status          TEXT NOT NULL DEFAULT 'draft',
	start_date      TEXT,
	end_date        TEXT,
	contract_value  REAL,
	created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS promoter_skills (
	id          TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	promoter_id TEXT NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	skill       TEXT NOT NULL,
	level       TEXT
);

CREATE TABLE IF NOT EXISTS promoter_experience (
	id          TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	promoter_id TEXT NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	company     TEXT NOT NULL,
	role        TEXT NOT NULL,
	start_date  TEXT,
	end_date    TEXT,
	description TEXT
);

CREATE TABLE IF NOT EXISTS promoter_education (
	id          TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	promoter_id TEXT NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	degree      TEXT NOT NULL,
	institution TEXT NOT NULL,
	year        INTEGER
);

CREATE TABLE IF NOT EXISTS promoter_documents (
	id            TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
	promoter_id   TEXT NOT NULL REFERENCES promoters(id) ON DELETE CASCADE,
	document_type TEXT NOT NULL,
	file_name     TEXT,
	file_url      TEXT,
	uploaded_on   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_promoters_name_en ON promoters(name_en);
CREATE INDEX IF NOT EXISTS idx_promoters_status ON promoters(status);
CREATE INDEX IF NOT EXISTS idx_contracts_promoter_status ON contracts(promoter_id, status);
`
