package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
)

type Database struct {
	db  *sql.DB
	log zerolog.Logger
}

type Room struct {
	Name      string    `json:"room_name"`
	Content   string    `json:"content"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AdminContent struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(dbPath string, log zerolog.Logger) (*Database, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	log.Info().Str("path", dbPath).Msg("database initialized")
	return &Database{db: db, log: log.With().Str("component", "db").Logger()}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		room_name TEXT PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		locked BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS admin_content (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS interview_notes (
		room_name TEXT PRIMARY KEY,
		notes TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Room operations

// CreateRoom inserts a new room with empty content. Returns ErrRoomExists
// when the name is already taken.
func (d *Database) CreateRoom(name string) error {
	result, err := d.db.Exec(
		"INSERT OR IGNORE INTO rooms (room_name, content) VALUES (?, '')",
		name,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomExists
	}
	return nil
}

func (d *Database) GetRoom(name string) (*Room, error) {
	row := d.db.QueryRow(
		"SELECT room_name, content, locked, created_at, updated_at FROM rooms WHERE room_name = ?",
		name,
	)

	var room Room
	err := row.Scan(&room.Name, &room.Content, &room.Locked, &room.CreatedAt, &room.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomExists reports whether a room row with this name is present.
func (d *Database) RoomExists(name string) (bool, error) {
	var one int
	err := d.db.QueryRow("SELECT 1 FROM rooms WHERE room_name = ?", name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Database) ListRooms() ([]Room, error) {
	rows, err := d.db.Query(
		"SELECT room_name, content, locked, created_at, updated_at FROM rooms ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.Name, &room.Content, &room.Locked, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room row. Returns ErrRoomNotFound when the name is
// unknown, so the control plane can answer 404.
func (d *Database) DeleteRoom(name string) error {
	result, err := d.db.Exec("DELETE FROM rooms WHERE room_name = ?", name)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomNotFound
	}

	// Room-scoped notes go with the room.
	_, err = d.db.Exec("DELETE FROM interview_notes WHERE room_name = ?", name)
	return err
}

// Content operations

func (d *Database) GetRoomContent(name string) (string, error) {
	var content string
	err := d.db.QueryRow(
		"SELECT content FROM rooms WHERE room_name = ?",
		name,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", ErrRoomNotFound
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// UpdateRoomContent is last-write-wins; interleaved writers commit in
// whatever order sqlite serializes them.
func (d *Database) UpdateRoomContent(name, content string) error {
	result, err := d.db.Exec(
		"UPDATE rooms SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE room_name = ?",
		content, name,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Lock operations

func (d *Database) GetRoomLock(name string) (bool, error) {
	var locked bool
	err := d.db.QueryRow(
		"SELECT locked FROM rooms WHERE room_name = ?",
		name,
	).Scan(&locked)
	if err == sql.ErrNoRows {
		return false, ErrRoomNotFound
	}
	if err != nil {
		return false, err
	}
	return locked, nil
}

func (d *Database) SetRoomLock(name string, locked bool) error {
	result, err := d.db.Exec(
		"UPDATE rooms SET locked = ?, updated_at = CURRENT_TIMESTAMP WHERE room_name = ?",
		locked, name,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// LockRoomsOlderThan locks every unlocked room created more than the given
// number of days ago and returns how many rooms it touched.
func (d *Database) LockRoomsOlderThan(days int) (int64, error) {
	result, err := d.db.Exec(
		`UPDATE rooms
		 SET locked = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE locked = 0 AND created_at <= datetime('now', ?)`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Admin content operations

func (d *Database) CreateAdminContent(title, content string) (*AdminContent, error) {
	result, err := d.db.Exec(
		"INSERT INTO admin_content (title, content) VALUES (?, ?)",
		title, content,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return d.GetAdminContent(int(id))
}

func (d *Database) GetAdminContent(id int) (*AdminContent, error) {
	row := d.db.QueryRow(
		"SELECT id, title, content, created_at, updated_at FROM admin_content WHERE id = ?",
		id,
	)

	var c AdminContent
	err := row.Scan(&c.ID, &c.Title, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (d *Database) ListAdminContent() ([]AdminContent, error) {
	rows, err := d.db.Query(
		"SELECT id, title, content, created_at, updated_at FROM admin_content ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []AdminContent
	for rows.Next() {
		var c AdminContent
		if err := rows.Scan(&c.ID, &c.Title, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

func (d *Database) UpdateAdminContent(id int, title, content string) (bool, error) {
	result, err := d.db.Exec(
		"UPDATE admin_content SET title = ?, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		title, content, id,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (d *Database) DeleteAdminContent(id int) (bool, error) {
	result, err := d.db.Exec("DELETE FROM admin_content WHERE id = ?", id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Interview notes operations

func (d *Database) GetNotes(roomName string) (string, error) {
	var notes string
	err := d.db.QueryRow(
		"SELECT notes FROM interview_notes WHERE room_name = ?",
		roomName,
	).Scan(&notes)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return notes, nil
}

func (d *Database) SetNotes(roomName, notes string) error {
	_, err := d.db.Exec(`
		INSERT INTO interview_notes (room_name, notes, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_name) DO UPDATE SET
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP
	`, roomName, notes)
	return err
}

// Stats

func (d *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var roomCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&roomCount); err != nil {
		return nil, err
	}
	stats["room_count"] = roomCount

	var lockedCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM rooms WHERE locked = 1").Scan(&lockedCount); err != nil {
		return nil, err
	}
	stats["locked_count"] = lockedCount

	return stats, nil
}
