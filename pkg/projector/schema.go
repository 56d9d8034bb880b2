package projector

const schema = `
CREATE TABLE IF NOT EXISTS block (
	hash_id             TEXT PRIMARY KEY,
	prev_block_hash_id  TEXT NULL REFERENCES block(hash_id)
);

CREATE TABLE IF NOT EXISTS "transaction" (
	tx_hash_id    TEXT PRIMARY KEY,
	block_hash_id TEXT NOT NULL REFERENCES block(hash_id)
);

CREATE TABLE IF NOT EXISTS address (
	address TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS txout (
	output_id     TEXT PRIMARY KEY,
	tx_hash_id    TEXT NOT NULL REFERENCES "transaction"(tx_hash_id),
	output_index  INTEGER NOT NULL,
	value         INTEGER NOT NULL,
	address       TEXT NOT NULL REFERENCES address(address)
);

CREATE TABLE IF NOT EXISTS txin (
	tx_hash_id  TEXT NOT NULL REFERENCES "transaction"(tx_hash_id),
	input_index INTEGER NOT NULL,
	output_id   TEXT NULL REFERENCES txout(output_id),
	PRIMARY KEY (tx_hash_id, input_index)
);

CREATE TABLE IF NOT EXISTS comment (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	block_hash_id TEXT NOT NULL REFERENCES block(hash_id),
	body          TEXT NOT NULL
);
`
