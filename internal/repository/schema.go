package repository

// Schema definitions for the Shrike audit store.
// Compatible with both SQLite and PostgreSQL.

const schemaReports = `
CREATE TABLE IF NOT EXISTS fraud_reports (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    post_url TEXT NOT NULL DEFAULT '',
    overall_score REAL NOT NULL,
    pass_threshold REAL NOT NULL,
    passed INTEGER NOT NULL,
    recommendation TEXT NOT NULL,
    confidence TEXT NOT NULL,
    breakdown TEXT NOT NULL,
    fraud_flags TEXT NOT NULL,
    rule_results TEXT,
    summary TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_tenant ON fraud_reports(tenant_id);
CREATE INDEX IF NOT EXISTS idx_reports_post ON fraud_reports(tenant_id, post_url);
CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON fraud_reports(tenant_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_reports_recommendation ON fraud_reports(tenant_id, recommendation);
`

const schemaRuleConfigs = `
CREATE TABLE IF NOT EXISTS rule_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_configs_tenant ON rule_configs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rule_configs_enabled ON rule_configs(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaReports,
		schemaRuleConfigs,
	}
}
