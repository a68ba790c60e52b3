package postgres

// schemaDDL idempotente; se aplica al abrir el pool.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS nfse_runs (
	id          UUID PRIMARY KEY,
	competency  CHAR(7)     NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	row_count   INTEGER     NOT NULL,
	cancelled   INTEGER     NOT NULL
);

CREATE TABLE IF NOT EXISTS nfse_run_clients (
	run_id      UUID    NOT NULL REFERENCES nfse_runs(id),
	seq         INTEGER NOT NULL,
	empresa     TEXT    NOT NULL,
	cnpj        TEXT,
	tipo_acesso TEXT,
	status      TEXT    NOT NULL,
	detalhe     TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS nfse_ledger_rows (
	run_id                     UUID    NOT NULL REFERENCES nfse_runs(id),
	seq                        INTEGER NOT NULL,
	numero_nf                  TEXT,
	data_emissao               TEXT,
	data_competencia           TEXT,
	cnpj_prestador             TEXT,
	razao_prestador            TEXT,
	cnpj_tomador               TEXT,
	razao_tomador              TEXT,
	optante_sn                 TEXT,
	codigo_tributacao_nacional TEXT,
	valor_servico              NUMERIC(15,2),
	ir                         NUMERIC(15,2),
	iss                        NUMERIC(15,2),
	iss_retido                 NUMERIC(15,2),
	csll                       NUMERIC(15,2),
	deducoes                   NUMERIC(15,2),
	pis                        NUMERIC(15,2),
	cofins                     NUMERIC(15,2),
	inss                       NUMERIC(15,2),
	desc_incond                NUMERIC(15,2),
	desc_cond                  NUMERIC(15,2),
	outras_ret                 NUMERIC(15,2),
	aliquota                   NUMERIC(15,2),
	base_calculo               NUMERIC(15,2),
	valor_liquido              NUMERIC(15,2),
	situacao                   TEXT,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_nfse_runs_competency ON nfse_runs (competency);
`
