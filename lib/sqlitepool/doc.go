// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite databases hostlaunch keeps in its
// cache directory.
//
// It wraps zombiezen.com/go/sqlite with defaults suited to a
// short-lived command that may run concurrently with other instances
// of itself against the same file: WAL journal mode so readers never
// block the writer, NORMAL synchronous, and a busy timeout long enough
// to ride out another launcher's write.
//
// # Pragmas
//
// Every connection is initialized with:
//
//   - journal_mode=WAL: concurrent readers and a single writer.
//   - synchronous=NORMAL: transactions survive process crashes. Run
//     history is advisory, so OS-crash durability is not required.
//   - busy_timeout=10000: wait up to 10 seconds for the write lock.
//   - foreign_keys=ON.
//   - temp_store=MEMORY.
//
// # Migrations
//
// [Config.Migrations] lists schema scripts in order. Open applies the
// ones the database has not seen yet, tracking progress in
// PRAGMA user_version, inside one immediate transaction.
//
// # Usage
//
//	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
//	    Path:       layout.HistoryDB(),
//	    Logger:     logger,
//	    Migrations: []string{createRunsTable},
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.WithConn(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, query, options)
//	})
package sqlitepool
