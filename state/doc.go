// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the ledger storage.
//
// Every builtin account owns a flat storage space of 32-byte slots holding
// rlp encoded values. Changes are journaled in memory and can be reverted to
// any checkpoint. A Stage collects the journaled changes and writes them to
// the underlying kv store in one batch.
package state
