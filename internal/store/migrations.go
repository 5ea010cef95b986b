package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS raw_market_data (
    date TEXT PRIMARY KEY,
    crude_oil REAL NOT NULL,
    gasoline REAL NOT NULL,
    heating_oil REAL NOT NULL,
    natural_gas REAL NOT NULL,
    valero REAL NOT NULL,
    phillips66 REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_margin_data (
    date TEXT PRIMARY KEY,
    crude_oil REAL NOT NULL,
    gasoline REAL NOT NULL,
    heating_oil REAL NOT NULL,
    natural_gas REAL NOT NULL,
    valero REAL NOT NULL,
    phillips66 REAL NOT NULL,
    gasoline_bbl REAL NOT NULL,
    heating_oil_bbl REAL NOT NULL,
    crack_spread REAL NOT NULL,
    variable_opex REAL NOT NULL,
    total_opex REAL NOT NULL,
    net_margin REAL NOT NULL,
    spread_30d_ma REAL,
    net_margin_30d_ma REAL
);

CREATE TABLE IF NOT EXISTS commentary_reports (
    report_date TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    raw_text TEXT NOT NULL,
    word_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS commentary_sentiment (
    report_date TEXT PRIMARY KEY,
    compound REAL NOT NULL,
    positive REAL NOT NULL,
    negative REAL NOT NULL,
    neutral REAL NOT NULL,
    net_keyword_score REAL NOT NULL,
    dominant_topic INTEGER NOT NULL,
    topic_prob REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS sentiment_margin_merged (
    report_date TEXT PRIMARY KEY,
    compound REAL NOT NULL,
    positive REAL NOT NULL,
    negative REAL NOT NULL,
    neutral REAL NOT NULL,
    net_keyword_score REAL NOT NULL,
    dominant_topic INTEGER NOT NULL,
    topic_prob REAL NOT NULL,
    trade_date TEXT NOT NULL,
    crack_spread REAL NOT NULL,
    spread_30d_ma REAL,
    net_margin REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS sentiment_margin_rolling_corr (
    date TEXT PRIMARY KEY,
    rolling_corr REAL NOT NULL
);
`
