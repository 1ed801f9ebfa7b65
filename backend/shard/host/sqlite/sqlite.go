// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/shardmap/go/backend/shard/host"
	"github.com/Fantom-foundation/shardmap/go/common"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// See https://www.sqlite.org/pragma.html
	kConfigureConnection = []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA locking_mode = EXCLUSIVE",
	}
)

const (
	kCreateRecordTable = "CREATE TABLE IF NOT EXISTS record (address BLOB PRIMARY KEY, data BLOB NOT NULL)"
	kAddRecordStmt     = "INSERT INTO record(address, data) VALUES (?,?)"
	kGetRecordStmt     = "SELECT data FROM record WHERE address = ?"
	kSetRecordStmt     = "UPDATE record SET data = ? WHERE address = ?"
	kGetSizeStmt       = "SELECT length(data) FROM record WHERE address = ?"
	kDeleteRecordStmt  = "DELETE FROM record WHERE address = ?"
)

// RecordStore is a host.RecordStore keeping all records in a single SQLite
// table.
type RecordStore struct {
	db               *sql.DB
	addRecordStmt    *sql.Stmt
	getRecordStmt    *sql.Stmt
	setRecordStmt    *sql.Stmt
	getSizeStmt      *sql.Stmt
	deleteRecordStmt *sql.Stmt
}

// NewRecordStore opens or creates the SQLite database in the given file.
func NewRecordStore(file string) (*RecordStore, error) {
	db, err := sql.Open("sqlite3", "file:"+file)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite; %w", err)
	}
	// Connection pragmas only apply to the connection executing them.
	db.SetMaxOpenConns(1)
	res, err := initRecordStore(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return res, nil
}

func initRecordStore(db *sql.DB) (*RecordStore, error) {
	for _, cmd := range kConfigureConnection {
		if _, err := db.Exec(cmd); err != nil {
			return nil, fmt.Errorf("failed to configure connection with %s; %w", cmd, err)
		}
	}
	if _, err := db.Exec(kCreateRecordTable); err != nil {
		return nil, fmt.Errorf("failed to create record table; %w", err)
	}

	res := &RecordStore{db: db}
	stmts := []struct {
		query string
		stmt  **sql.Stmt
	}{
		{kAddRecordStmt, &res.addRecordStmt},
		{kGetRecordStmt, &res.getRecordStmt},
		{kSetRecordStmt, &res.setRecordStmt},
		{kGetSizeStmt, &res.getSizeStmt},
		{kDeleteRecordStmt, &res.deleteRecordStmt},
	}
	for _, s := range stmts {
		stmt, err := db.Prepare(s.query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %s; %w", s.query, err)
		}
		*s.stmt = stmt
	}
	return res, nil
}

func (s *RecordStore) Allocate(address common.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("invalid record size %d", size)
	}
	if exists, err := s.Has(address); err != nil || exists {
		if err == nil {
			err = fmt.Errorf("%w: %v", host.ErrRecordExists, address)
		}
		return err
	}
	_, err := s.addRecordStmt.Exec(address[:], make([]byte, size))
	return err
}

func (s *RecordStore) Load(address common.Address) ([]byte, error) {
	var data []byte
	err := s.getRecordStmt.QueryRow(address[:]).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	if data == nil && err == nil {
		data = []byte{}
	}
	return data, err
}

func (s *RecordStore) Store(address common.Address, data []byte) error {
	size, err := s.Size(address)
	if err != nil {
		return err
	}
	if len(data) != size {
		return fmt.Errorf("%w: got %d bytes, record has %d", host.ErrRecordSizeMismatch, len(data), size)
	}
	_, err = s.setRecordStmt.Exec(data, address[:])
	return err
}

func (s *RecordStore) Reallocate(address common.Address, size int) error {
	if size < 0 {
		return fmt.Errorf("invalid record size %d", size)
	}
	current, err := s.Load(address)
	if err != nil {
		return err
	}
	resized := make([]byte, size)
	copy(resized, current)
	_, err = s.setRecordStmt.Exec(resized, address[:])
	return err
}

func (s *RecordStore) Size(address common.Address) (int, error) {
	var size int
	err := s.getSizeStmt.QueryRow(address[:]).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	return size, err
}

func (s *RecordStore) Delete(address common.Address) error {
	res, err := s.deleteRecordStmt.Exec(address[:])
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %v", host.ErrRecordNotFound, address)
	}
	return nil
}

func (s *RecordStore) Has(address common.Address) (bool, error) {
	_, err := s.Size(address)
	if errors.Is(err, host.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}
