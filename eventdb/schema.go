// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

const eventTableSchema = `
CREATE TABLE IF NOT EXISTS event (
	blockNumber INTEGER NOT NULL,
	eventIndex INTEGER NOT NULL,
	blockTime INTEGER NOT NULL,
	pool BLOB(20) NOT NULL,
	name TEXT NOT NULL,
	topic BLOB(32) NOT NULL,
	account BLOB(20) NOT NULL,
	counterparty BLOB(20) NOT NULL,
	amount TEXT NOT NULL,
	meta TEXT,
	PRIMARY KEY (blockNumber, eventIndex)
);

CREATE INDEX IF NOT EXISTS poolIndex ON event(pool);
CREATE INDEX IF NOT EXISTS accountIndex ON event(account);
CREATE INDEX IF NOT EXISTS counterpartyIndex ON event(counterparty);
CREATE INDEX IF NOT EXISTS topicIndex ON event(topic);
`
